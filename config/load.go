package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

func Load() App {
	// Local dev convenience; a missing .env is fine.
	_ = godotenv.Load()

	cfg := App{
		Port:        getenv("APP_PORT", "8080"),
		DatabaseURL: must("DATABASE_URL"),
		JWTSecret:   getenv("JWT_SECRET", "local_dev_secret"),
		Env:         getenv("APP_ENV", "dev"),

		CureOverdueOnExtend: getbool("LOAN_CURE_OVERDUE_ON_EXTEND", true),
		RequireReturnedLoan: getbool("REVIEW_REQUIRE_RETURNED_LOAN", false),
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("bad bool env, using default", "key", k, "value", v)
		return def
	}
	return b
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
