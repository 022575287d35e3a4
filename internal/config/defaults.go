package config

// SetDefaults fills every zero-valued field with the defaults from §6.3.
// It runs after the raw config is unmarshalled but before Validate, so a
// config file only needs to name what it overrides.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}

	for name, llm := range c.LLMs {
		if llm.MaxTokens == 0 {
			llm.MaxTokens = 4096
			c.LLMs[name] = llm
		}
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.DSN == "" && c.Store.Driver == "sqlite" {
		c.Store.DSN = "polwatch.db"
	}

	if c.ObjectStore.Driver == "" {
		c.ObjectStore.Driver = "local"
	}
	if c.ObjectStore.BasePath == "" {
		c.ObjectStore.BasePath = "artifacts"
	}

	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = 10
	}

	if c.Graph.MaxIterations == 0 {
		c.Graph.MaxIterations = 3
	}
	if c.Graph.ToolTimeoutSeconds == 0 {
		c.Graph.ToolTimeoutSeconds = 60
	}
	if c.Graph.SubAgentTimeoutSeconds == 0 {
		c.Graph.SubAgentTimeoutSeconds = 180
	}
	if c.Graph.TurnTimeoutSeconds == 0 {
		c.Graph.TurnTimeoutSeconds = 180
	}
	if c.Graph.MaxHistoryTurns == 0 {
		c.Graph.MaxHistoryTurns = 10
	}

	if c.Cache.TTLHours == 0 {
		c.Cache.TTLHours = 3
	}
	// Cache.Enabled defaults to false, which is the zero value already.

	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	if c.RateLimit.Scope == "" {
		c.RateLimit.Scope = "session"
	}
	// RateLimit.Enabled defaults to false, which is the zero value already.

	if c.Observability.MetricsNamespace == "" {
		c.Observability.MetricsNamespace = "polwatch"
	}
	// Observability.TracingEnabled/MetricsEnabled default to false, the
	// zero value already.

	c.Logger.SetDefaults()
}
