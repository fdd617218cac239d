package config

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"smartscore/internal/features"
	"smartscore/internal/model"
	"smartscore/internal/ranking"
)

// Config holds settings for the features, rank and run commands.
type Config struct {
	Trades       string
	PGDSN        string
	InitSchema   bool
	Out          string
	StateFile    string
	StateName    string
	AsOf         string
	From         string
	To           string
	Wallets      []string
	Concurrency  int
	TopK         int
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string

	Thresholds  features.Thresholds
	Weights     ranking.Weights
	Reasons     ranking.ReasonThresholds
	ReasonCodes []string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("out", "./data")
		v.SetDefault("state-name", "smartscore")
		v.SetDefault("init-schema", true)
		v.SetDefault("concurrency", runtime.NumCPU())
		v.SetDefault("top-k", ranking.DefaultTopK)
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("log-level", "info")
		setThresholdDefaults(v, features.DefaultThresholds())
		setWeightDefaults(v, ranking.DefaultWeights())
		setReasonDefaults(v, ranking.DefaultReasonThresholds())
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Trades:       v.GetString("trades"),
		PGDSN:        v.GetString("pg-dsn"),
		InitSchema:   v.GetBool("init-schema"),
		Out:          v.GetString("out"),
		StateFile:    v.GetString("state-file"),
		StateName:    v.GetString("state-name"),
		AsOf:         v.GetString("as-of"),
		From:         v.GetString("from"),
		To:           v.GetString("to"),
		Wallets:      getStringSlice(v, "wallet"),
		Concurrency:  v.GetInt("concurrency"),
		TopK:         v.GetInt("top-k"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
		Thresholds: features.Thresholds{
			WindowDays:          v.GetInt("thresholds.window-days"),
			VisibilityRatio:     v.GetFloat64("thresholds.visibility-ratio"),
			ReversalWindow:      v.GetDuration("thresholds.reversal-window"),
			BaitFullMove:        v.GetFloat64("thresholds.bait-full-move"),
			PriceMoveThreshold:  v.GetFloat64("thresholds.price-move-threshold"),
			PriceMoveWindow:     v.GetDuration("thresholds.price-move-window"),
			InsiderBaselineRate: v.GetFloat64("thresholds.insider-baseline-rate"),
			InsiderMinSample:    v.GetInt("thresholds.insider-min-sample"),
			HFTradeCount:        v.GetInt("thresholds.hf-trade-count"),
			HFInterval:          v.GetDuration("thresholds.hf-interval"),
			MinTradesForRanking: v.GetInt("thresholds.min-trades-for-ranking"),
		},
		Weights: ranking.Weights{
			WinRate:        v.GetFloat64("weights.win-rate"),
			ROI:            v.GetFloat64("weights.roi"),
			Volume:         v.GetFloat64("weights.volume"),
			Bait:           v.GetFloat64("weights.bait"),
			InsiderPenalty: v.GetFloat64("weights.insider-penalty"),
			ROIStdPenalty:  v.GetFloat64("weights.roi-std-penalty"),
			ROIScale:       v.GetFloat64("weights.roi-scale"),
			VolumeCap:      v.GetFloat64("weights.volume-cap"),
		},
		Reasons: ranking.ReasonThresholds{
			HighWinRate:       v.GetFloat64("reasons.high-win-rate"),
			ConsistentROIStd:  v.GetFloat64("reasons.consistent-roi-std"),
			LowBait:           v.GetFloat64("reasons.low-bait"),
			HighBait:          v.GetFloat64("reasons.high-bait"),
			HighVolume:        v.GetFloat64("reasons.high-volume"),
			MaxConcentration:  v.GetFloat64("reasons.max-concentration"),
			EarlyEntrySeconds: v.GetFloat64("reasons.early-entry-seconds"),
			LongHoldSeconds:   v.GetFloat64("reasons.long-hold-seconds"),
			MaxDrawdown:       v.GetFloat64("reasons.max-drawdown"),
			MaxReasons:        v.GetInt("reasons.max-reasons"),
		},
		ReasonCodes: getStringSlice(v, "reasons.codes"),
	}

	if err := cfg.Thresholds.Validate(); err != nil {
		return Config{}, fmt.Errorf("thresholds: %w", err)
	}
	if err := cfg.Weights.Validate(); err != nil {
		return Config{}, fmt.Errorf("weights: %w", err)
	}
	return cfg, nil
}

// ImportConfig holds settings for the import command.
type ImportConfig struct {
	In                string
	PGDSN             string
	InitSchema        bool
	BatchSize         int
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string
}

// LoadImport merges .env, config file, environment variables, and flags into ImportConfig.
func LoadImport(cfgFile string, flags *pflag.FlagSet) (ImportConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("init-schema", true)
		v.SetDefault("batch-size", 1000)
		v.SetDefault("checkpoint", "./data/import.checkpoint.json")
		v.SetDefault("checkpoint-enabled", true)
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return ImportConfig{}, err
	}

	return ImportConfig{
		In:                v.GetString("in"),
		PGDSN:             v.GetString("pg-dsn"),
		InitSchema:        v.GetBool("init-schema"),
		BatchSize:         v.GetInt("batch-size"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(v *viper.Viper)) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("SMARTSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	defaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func setThresholdDefaults(v *viper.Viper, t features.Thresholds) {
	v.SetDefault("thresholds.window-days", t.WindowDays)
	v.SetDefault("thresholds.visibility-ratio", t.VisibilityRatio)
	v.SetDefault("thresholds.reversal-window", t.ReversalWindow)
	v.SetDefault("thresholds.bait-full-move", t.BaitFullMove)
	v.SetDefault("thresholds.price-move-threshold", t.PriceMoveThreshold)
	v.SetDefault("thresholds.price-move-window", t.PriceMoveWindow)
	v.SetDefault("thresholds.insider-baseline-rate", t.InsiderBaselineRate)
	v.SetDefault("thresholds.insider-min-sample", t.InsiderMinSample)
	v.SetDefault("thresholds.hf-trade-count", t.HFTradeCount)
	v.SetDefault("thresholds.hf-interval", t.HFInterval)
	v.SetDefault("thresholds.min-trades-for-ranking", t.MinTradesForRanking)
}

func setWeightDefaults(v *viper.Viper, w ranking.Weights) {
	v.SetDefault("weights.win-rate", w.WinRate)
	v.SetDefault("weights.roi", w.ROI)
	v.SetDefault("weights.volume", w.Volume)
	v.SetDefault("weights.bait", w.Bait)
	v.SetDefault("weights.insider-penalty", w.InsiderPenalty)
	v.SetDefault("weights.roi-std-penalty", w.ROIStdPenalty)
	v.SetDefault("weights.roi-scale", w.ROIScale)
	v.SetDefault("weights.volume-cap", w.VolumeCap)
}

func setReasonDefaults(v *viper.Viper, r ranking.ReasonThresholds) {
	v.SetDefault("reasons.high-win-rate", r.HighWinRate)
	v.SetDefault("reasons.consistent-roi-std", r.ConsistentROIStd)
	v.SetDefault("reasons.low-bait", r.LowBait)
	v.SetDefault("reasons.high-bait", r.HighBait)
	v.SetDefault("reasons.high-volume", r.HighVolume)
	v.SetDefault("reasons.max-concentration", r.MaxConcentration)
	v.SetDefault("reasons.early-entry-seconds", r.EarlyEntrySeconds)
	v.SetDefault("reasons.long-hold-seconds", r.LongHoldSeconds)
	v.SetDefault("reasons.max-drawdown", r.MaxDrawdown)
	v.SetDefault("reasons.max-reasons", r.MaxReasons)
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// ResolveDay parses input as a YYYY-MM-DD day. An empty input resolves to the
// last complete UTC day before now.
func ResolveDay(input string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(input) == "" {
		return model.Day(now).AddDate(0, 0, -1), nil
	}
	return model.ParseDay(input)
}
