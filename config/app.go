package config

type App struct {
	Port        string `env:"APP_PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET" default:"local_dev_secret"`
	Env         string `env:"APP_ENV" default:"dev"`

	// Loan policy knobs, see service/library.
	CureOverdueOnExtend bool `env:"LOAN_CURE_OVERDUE_ON_EXTEND" default:"true"`
	RequireReturnedLoan bool `env:"REVIEW_REQUIRE_RETURNED_LOAN" default:"false"`
}
