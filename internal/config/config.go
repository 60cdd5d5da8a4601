package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"nutrition-planner/internal/planner"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string
	CorpusPath   string
	CorpusURL    string
	ScrapeDir    string

	LogLevel  string
	LogFormat string

	AutosaveDelay    time.Duration
	MaxDishesPerMeal int
	PlannerSeed      int64

	BalanceProteinGap      float64
	BalanceFatGap          float64
	BalanceCarbsGap        float64
	BalanceMealMinCalories float64
	BalanceDayMinCalories  float64
	FillProteinGap         float64
	FillCarbsGap           float64

	AuthUserID    string
	AuthJWTSecret string
	AuthToken     string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	Port                   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_PATH", "data/db/planner.db")
	v.SetDefault("CORPUS_PATH", "data/recipes.json")
	v.SetDefault("SCRAPE_DIR", "data/scraped")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("AUTOSAVE_DELAY", "5s")
	v.SetDefault("MAX_DISHES_PER_MEAL", planner.DefaultMaxDishesPerMeal)
	v.SetDefault("PLANNER_SEED", 0)

	th := planner.DefaultThresholds()
	v.SetDefault("BALANCE_PROTEIN_GAP", th.MealProteinGap)
	v.SetDefault("BALANCE_FAT_GAP", th.MealFatGap)
	v.SetDefault("BALANCE_CARBS_GAP", th.MealCarbsGap)
	v.SetDefault("BALANCE_MEAL_MIN_CALORIES", th.MealMinCalories)
	v.SetDefault("BALANCE_DAY_MIN_CALORIES", th.DayMinCalories)
	v.SetDefault("FILL_PROTEIN_GAP", th.DayProteinGap)
	v.SetDefault("FILL_CARBS_GAP", th.FillCarbsGap)

	v.SetDefault("AUTH_USER_ID", "local")
	v.SetDefault("PORT", "8080")
}

// NewFromEnv creates a new Config object from environment variables. A .env
// file in the working directory is loaded first if present; variables
// already set in the environment take precedence over it.
func NewFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	autosave, err := time.ParseDuration(v.GetString("AUTOSAVE_DELAY"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTOSAVE_DELAY: %w", err)
	}

	maxDishes := v.GetInt("MAX_DISHES_PER_MEAL")
	if maxDishes < 1 {
		return nil, fmt.Errorf("MAX_DISHES_PER_MEAL must be positive, got %d", maxDishes)
	}

	allowed, err := parseUserIDs(v.GetString("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabasePath: v.GetString("DATABASE_PATH"),
		CorpusPath:   v.GetString("CORPUS_PATH"),
		CorpusURL:    v.GetString("CORPUS_URL"),
		ScrapeDir:    v.GetString("SCRAPE_DIR"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		AutosaveDelay:    autosave,
		MaxDishesPerMeal: maxDishes,
		PlannerSeed:      v.GetInt64("PLANNER_SEED"),

		BalanceProteinGap:      v.GetFloat64("BALANCE_PROTEIN_GAP"),
		BalanceFatGap:          v.GetFloat64("BALANCE_FAT_GAP"),
		BalanceCarbsGap:        v.GetFloat64("BALANCE_CARBS_GAP"),
		BalanceMealMinCalories: v.GetFloat64("BALANCE_MEAL_MIN_CALORIES"),
		BalanceDayMinCalories:  v.GetFloat64("BALANCE_DAY_MIN_CALORIES"),
		FillProteinGap:         v.GetFloat64("FILL_PROTEIN_GAP"),
		FillCarbsGap:           v.GetFloat64("FILL_CARBS_GAP"),

		AuthUserID:    v.GetString("AUTH_USER_ID"),
		AuthJWTSecret: v.GetString("AUTH_JWT_SECRET"),
		AuthToken:     v.GetString("AUTH_TOKEN"),

		TelegramBotToken:       v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     v.GetString("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
		Port:                   v.GetString("PORT"),
	}, nil
}

// RequireTelegram checks the values only the bot needs.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

// Thresholds returns the planner balancing thresholds. Day-level gaps
// not exposed as settings keep their defaults.
func (c *Config) Thresholds() planner.Thresholds {
	th := planner.DefaultThresholds()
	th.MealProteinGap = c.BalanceProteinGap
	th.MealFatGap = c.BalanceFatGap
	th.MealCarbsGap = c.BalanceCarbsGap
	th.MealMinCalories = c.BalanceMealMinCalories
	th.DayMinCalories = c.BalanceDayMinCalories
	th.DayProteinGap = c.FillProteinGap
	th.FillCarbsGap = c.FillCarbsGap
	return th
}

// parseUserIDs reads a comma-separated list of Telegram user IDs.
func parseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
