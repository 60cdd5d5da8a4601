package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"nutrition-planner/internal/app"
	"nutrition-planner/internal/auth"
	"nutrition-planner/internal/config"
	"nutrition-planner/internal/metrics"
	"nutrition-planner/internal/planner"
	"nutrition-planner/internal/recipe"
	"nutrition-planner/internal/shopping"
)

const (
	searchLimit  = 15
	historyLimit = 5
	reportDays   = 7

	callbackRegenerate = "regenerate"
	callbackShopping   = "shopping"
)

// API is the part of tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot serves planner commands over a Telegram webhook. Each Telegram user
// gets their own app session keyed by their user ID.
type Bot struct {
	api     API
	app     *app.App
	runs    *metrics.Store
	cfg     *config.Config
	logger  *zap.Logger
	now     func() time.Time
	dataDir string

	mu       sync.Mutex
	sessions map[int64]*app.Session
	inflight sync.WaitGroup
}

// NewBot initializes the Telegram API client and sets the webhook.
func NewBot(cfg *config.Config, a *app.App, runs *metrics.Store, logger *zap.Logger) (*Bot, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, err
	}
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	b := newBot(api, cfg, a, runs, logger)
	b.logger.Info("Authorized on account", zap.String("username", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	b.logger.Info("Webhook set", zap.String("description", resp.Description))
	return b, nil
}

func newBot(api API, cfg *config.Config, a *app.App, runs *metrics.Store, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:      api,
		app:      a,
		runs:     runs,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		dataDir:  "data",
		sessions: make(map[int64]*app.Session),
	}
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Close waits for in-flight updates and flushes every session.
func (b *Bot) Close(ctx context.Context) error {
	b.inflight.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for id, s := range b.sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn("Error parsing update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var from *tgbotapi.User
	switch {
	case update.CallbackQuery != nil:
		from = update.CallbackQuery.From
	case update.Message != nil:
		from = update.Message.From
	default:
		return
	}
	if from == nil || !b.allowed(from.ID) {
		if from != nil {
			b.logger.Warn("Unauthorized access attempt", zap.Int64("user_id", from.ID), zap.String("username", from.UserName))
		}
		return
	}

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if update.CallbackQuery != nil {
			b.handleCallback(ctx, update.CallbackQuery)
			return
		}
		b.handleMessage(ctx, update.Message)
	}()
}

func (b *Bot) allowed(userID int64) bool {
	return slices.Contains(b.cfg.TelegramAllowedUserIDs, userID)
}

// session returns the user's session, restoring their saved plan on first use.
func (b *Bot) session(ctx context.Context, userID int64) *app.Session {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.sessions[userID]; ok {
		return s
	}
	s := b.app.NewSession(auth.NewStatic(strconv.FormatInt(userID, 10)))
	if _, err := s.Load(ctx, 1); err != nil {
		b.logger.Warn("Failed to restore saved plan", zap.Int64("user_id", userID), zap.Error(err))
	}
	b.sessions[userID] = s
	return s
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	s := b.session(ctx, msg.From.ID)
	args := msg.CommandArguments()

	switch msg.Command() {
	case "generate":
		goals, settings, err := parseGenerateArgs(args)
		if err != nil {
			b.reply(chatID, "⚠️ "+err.Error())
			return
		}
		plan, err := s.Generate(ctx, goals, settings)
		if err != nil {
			b.replyError(chatID, err)
			return
		}
		b.sendPlanSummary(chatID, plan)

	case "regenerate":
		b.regenerate(ctx, chatID, s)

	case "day":
		week, day, err := parseDayArgs(args)
		if err != nil {
			b.reply(chatID, "⚠️ "+err.Error())
			return
		}
		plan := s.Plan()
		if plan == nil {
			b.replyError(chatID, planner.ErrNoPlan)
			return
		}
		text, err := formatDay(plan, week, day)
		if err != nil {
			b.replyError(chatID, err)
			return
		}
		b.reply(chatID, withNotice(s, text))

	case "fill":
		week, day, slot, err := parseFillArgs(args)
		if err != nil {
			b.reply(chatID, "⚠️ "+err.Error())
			return
		}
		added, err := s.FillMeal(week, day, slot)
		if err != nil {
			b.replyError(chatID, err)
			return
		}
		if added == nil {
			b.reply(chatID, "👌 Этот приём пищи уже близок к норме")
			return
		}
		b.reply(chatID, fmt.Sprintf("➕ Добавлено: %s, %.0f г (%.0f ккал)", added.Name, added.PortionGrams, added.ScaledNutrition.Calories))

	case "add":
		ref, name, err := parseAddArgs(args)
		if err != nil {
			b.reply(chatID, "⚠️ "+err.Error())
			return
		}
		added, err := s.AddRecipe(ref.week, ref.day, ref.slot, name)
		if err != nil {
			b.replyError(chatID, err)
			return
		}
		b.reply(chatID, fmt.Sprintf("➕ Добавлено: %s, %.0f г (%.0f ккал)", added.Name, added.PortionGrams, added.ScaledNutrition.Calories))

	case "remove":
		ref, idx, _, err := parseIndexArgs(args, "/remove неделя день приём номер", false)
		if err != nil {
			b.reply(chatID, "⚠️ "+err.Error())
			return
		}
		if err := s.RemoveRecipe(ref.week, ref.day, ref.slot, idx); err != nil {
			b.replyError(chatID, err)
			return
		}
		b.reply(chatID, "➖ Блюдо удалено")

	case "portion":
		ref, idx, grams, err := parseIndexArgs(args, "/portion неделя день приём номер граммы", true)
		if err != nil {
			b.reply(chatID, "⚠️ "+err.Error())
			return
		}
		if err := s.AdjustPortion(ref.week, ref.day, ref.slot, idx, grams); err != nil {
			b.replyError(chatID, err)
			return
		}
		b.reply(chatID, fmt.Sprintf("⚖️ Порция изменена: %.0f г", grams))

	case "shopping":
		b.sendShoppingList(ctx, chatID, s)

	case "stats":
		b.reply(chatID, formatStats(s.Stats()))

	case "search":
		if args == "" {
			b.reply(chatID, "⚠️ Укажите запрос: /search борщ")
			return
		}
		b.reply(chatID, formatSearch(args, s.Search(args), searchLimit))

	case "history":
		entries, err := s.History(ctx, historyLimit)
		if err != nil {
			b.replyError(chatID, err)
			return
		}
		b.reply(chatID, formatHistory(entries))

	case "metrics":
		b.sendReport(ctx, chatID)

	default:
		m := tgbotapi.NewMessage(chatID, helpText)
		m.ParseMode = tgbotapi.ModeMarkdown
		b.send(m)
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback", zap.Error(err))
	}
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	s := b.session(ctx, query.From.ID)

	switch query.Data {
	case callbackRegenerate:
		b.regenerate(ctx, chatID, s)
	case callbackShopping:
		b.sendShoppingList(ctx, chatID, s)
	default:
		b.logger.Debug("Unknown callback", zap.String("data", query.Data))
	}
}

func (b *Bot) regenerate(ctx context.Context, chatID int64, s *app.Session) {
	plan, err := s.Regenerate(ctx)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.sendPlanSummary(chatID, plan)
}

func (b *Bot) sendPlanSummary(chatID int64, plan *planner.Plan) {
	m := tgbotapi.NewMessage(chatID, formatSummary(plan))
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Пересобрать", callbackRegenerate),
			tgbotapi.NewInlineKeyboardButtonData("🛒 Покупки", callbackShopping),
		),
	)
	b.send(m)
}

func (b *Bot) sendShoppingList(ctx context.Context, chatID int64, s *app.Session) {
	list, err := s.ShoppingList(ctx)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	if len(list.Items) == 0 {
		b.reply(chatID, "🛒 Список покупок пуст")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  shopping.FileName(b.now()),
		Bytes: []byte(list.Text()),
	})
	doc.Caption = fmt.Sprintf("🛒 %d позиций", len(list.Items))
	if _, err := b.api.Send(doc); err != nil {
		b.logger.Warn("Failed to send shopping list file, falling back to text", zap.Error(err))
		b.reply(chatID, shopping.FormatGrouped(list.Items))
	}
}

func (b *Bot) sendReport(ctx context.Context, chatID int64) {
	var usage []metrics.DailyUsage
	if b.runs != nil {
		var err error
		usage, err = b.runs.GetDailyUsage(ctx, reportDays)
		if err != nil {
			b.logger.Error("Failed to fetch usage", zap.Error(err))
			b.reply(chatID, "❌ Не удалось получить статистику")
			return
		}
	}
	b.reply(chatID, formatReport(usage, metrics.Snapshot(b.dataDir)))
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn("Failed to send message", zap.Error(err))
	}
}

func (b *Bot) replyError(chatID int64, err error) {
	b.reply(chatID, userMessage(err))
}

// userMessage turns an error into a reply. Unknown errors are shown as is.
func userMessage(err error) string {
	var verr *planner.ValidationError
	var perr *planner.PersistenceError
	switch {
	case errors.As(err, &verr):
		return "⚠️ Проверьте параметры: " + verr.Error()
	case errors.Is(err, planner.ErrNoPlan):
		return "📭 Плана пока нет. Создайте его: /generate"
	case errors.Is(err, planner.ErrMealNotFound):
		return "🤷 Такого дня или приёма пищи нет в плане"
	case errors.Is(err, planner.ErrIndexOutOfRange):
		return "🤷 Такого блюда нет в приёме пищи"
	case errors.Is(err, recipe.ErrRecipeNotFound):
		return "🤷 Рецепт не найден"
	case errors.As(err, &perr):
		return "💾 План не сохранён, попробуйте позже: " + perr.Error()
	}
	return "❌ Ошибка: " + err.Error()
}

// withNotice appends the session's pending persistence failure to text.
func withNotice(s *app.Session, text string) string {
	if err := s.Notice(); err != nil {
		return text + "\n\n" + userMessage(err)
	}
	return text
}
