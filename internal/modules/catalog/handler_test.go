package catalog

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyellow/rentcar-bot/internal/rental"
	"github.com/garyellow/rentcar-bot/internal/storage"
)

func TestCarText(t *testing.T) {
	car := storage.Car{
		Make: "Kia", Model: "Picanto", Year: 2023,
		Category: rental.Economy, Seats: 4, Transmission: "manual",
		DailyRate: big.NewRat(5850, 100),
	}

	assert.Equal(t, "Kia Picanto (2023), 4 seats, manual: 58.50/day", Summary(car))
	assert.Equal(t, "🚗 Kia Picanto (2023)\nEconomy · 4 seats · manual\n💶 58.50 per day", Caption(car))
}
