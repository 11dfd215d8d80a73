// Command verify checks the bot's static wiring: every callback key has a
// handler, every keyboard fits Telegram's callback_data limit and the
// default fleet covers every category.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/garyellow/rentcar-bot/internal/bot"
	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/modules"
	"github.com/garyellow/rentcar-bot/internal/modules/booking"
	"github.com/garyellow/rentcar-bot/internal/modules/catalog"
	"github.com/garyellow/rentcar-bot/internal/modules/menu"
	"github.com/garyellow/rentcar-bot/internal/modules/mybookings"
	"github.com/garyellow/rentcar-bot/internal/navigation"
	"github.com/garyellow/rentcar-bot/internal/photos"
	"github.com/garyellow/rentcar-bot/internal/rental"
	"github.com/garyellow/rentcar-bot/internal/session"
	"github.com/garyellow/rentcar-bot/internal/storage"
	"github.com/garyellow/rentcar-bot/internal/telegram"
)

type verifyResult struct {
	name    string
	passed  bool
	message string
}

var callbackKeys = []string{
	bot.KeyMainMenu, bot.KeyBack, bot.KeyBrowse, bot.KeyCategory, bot.KeyCar,
	bot.KeyMode, bot.KeyBook, bot.KeyCalendarNav, bot.KeyCalendarPick,
	bot.KeyConfirm, bot.KeyAbort, bot.KeyMyBookings, bot.KeyBooking,
	bot.KeyBookingCancel, bot.KeyBookingEdit, bot.KeyEditConfirm, bot.KeyNoop,
}

func main() {
	fmt.Println("🔍 Rental bot wiring verification")
	fmt.Println("==================================")

	var results []verifyResult
	registry, err := buildRegistry()
	if err != nil {
		results = append(results, verifyResult{"Handler registry", false, err.Error()})
	} else {
		results = append(results, verifyResult{"Handler registry", true, fmt.Sprintf("%d commands, %d callback keys", len(registry.Commands()), len(registry.CallbackKeys()))})
		results = append(results, verifyCallbackRoutes(registry)...)
	}
	results = append(results, verifyKeyboards()...)
	results = append(results, verifyFleet()...)

	failed := 0
	for _, r := range results {
		status := "✅"
		if !r.passed {
			status = "❌"
			failed++
		}
		fmt.Printf("%s %s: %s\n", status, r.name, r.message)
	}
	fmt.Printf("\n📈 Summary: %d passed, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func buildRegistry() (*bot.Registry, error) {
	db, err := storage.NewTestDB()
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	deps := &modules.Deps{
		Messenger:  telegram.NewRecorder(),
		Sessions:   session.NewStore(),
		Navigation: navigation.NewStack(),
		DB:         db,
		Photos:     photos.Disabled{},
		Screens:    modules.NewScreens(),
		Logger:     logger.NewWithWriter("error", io.Discard),
	}
	bk := booking.NewHandler(deps)
	return modules.NewRegistry(
		menu.NewHandler(deps),
		catalog.NewHandler(deps),
		bk,
		mybookings.NewHandler(deps, bk),
	)
}

// verifyCallbackRoutes checks that no known key falls through to the stale
// button handler.
func verifyCallbackRoutes(r *bot.Registry) []verifyResult {
	var results []verifyResult
	for _, key := range callbackKeys {
		route := r.ResolveCallback(bot.BuildCallback(key, "x"))
		results = append(results, verifyResult{
			name:    "Callback " + key,
			passed:  !route.Fallback && route.Name == key,
			message: "routed to " + route.Label(),
		})
	}
	return results
}

func verifyKeyboards() []verifyResult {
	id := uuid.New()
	today := time.Now().UTC().Truncate(24 * time.Hour)
	keyboards := map[string]*tgbotapi.InlineKeyboardMarkup{
		"main menu":       telegram.MainMenu(),
		"categories":      telegram.Categories(),
		"car detail":      telegram.CarDetail(id),
		"confirm":         telegram.Confirm(bot.KeyEditConfirm),
		"abort":           telegram.Abort(),
		"booking actions": telegram.BookingActions(id, true),
		"item list": telegram.List([]telegram.ListItem{
			{Label: "item", Data: bot.BuildCallback(bot.KeyBookingCancel, id.String())},
		}, telegram.ModeToggleRow(rental.ModeGallery)),
	}
	for i := range 12 {
		keyboards[fmt.Sprintf("calendar +%d", i)] = telegram.Calendar(today.AddDate(0, i, 0), today)
	}

	var results []verifyResult
	for name, kb := range keyboards {
		longest := 0
		for _, row := range kb.InlineKeyboard {
			for _, b := range row {
				if b.CallbackData != nil && len(*b.CallbackData) > longest {
					longest = len(*b.CallbackData)
				}
			}
		}
		results = append(results, verifyResult{
			name:    "Keyboard " + name,
			passed:  longest <= bot.MaxCallbackData,
			message: fmt.Sprintf("longest callback_data %d/%d bytes", longest, bot.MaxCallbackData),
		})
	}
	return results
}

func verifyFleet() []verifyResult {
	fleet := storage.DefaultFleet()
	perCategory := make(map[rental.Category]int)
	keys := make(map[string]bool)
	var problems []string
	for _, c := range fleet {
		perCategory[c.Category]++
		if c.DailyRate == nil || c.DailyRate.Sign() <= 0 {
			problems = append(problems, c.Name()+" has no positive rate")
		}
		if keys[c.PhotoKey] {
			problems = append(problems, c.Name()+" reuses photo key "+c.PhotoKey)
		}
		keys[c.PhotoKey] = true
	}
	for _, cat := range rental.Categories {
		if perCategory[cat] == 0 {
			problems = append(problems, "no car in "+cat.Label())
		}
	}

	if len(problems) > 0 {
		return []verifyResult{{"Default fleet", false, fmt.Sprint(problems)}}
	}
	return []verifyResult{{"Default fleet", true, fmt.Sprintf("%d cars in %d categories", len(fleet), len(perCategory))}}
}
