package sections

// Curated section configuration, one YAML file per section.

type Config struct {
	ID       string         // Derived from filename (without .yml extension)
	Title    string         `yaml:"title"`
	URL      string         `yaml:"url"` // RSS/Atom source the section is ingested from
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled             bool `yaml:"enabled"`
	RefreshInterval     int  `yaml:"refresh_interval"` // seconds
	MaxItems            int  `yaml:"max_items"`
	Timeout             int  `yaml:"timeout"` // seconds
	ExtractDescriptions bool `yaml:"extract_descriptions"`
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
