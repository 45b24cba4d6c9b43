package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SectionsDir       string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Feed session configuration
	MockMode         bool
	Simulate         bool
	PageSize         int
	PrefetchDistance int
	SettleDelayMs    int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
