package config

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:        "http://localhost:5000",
			APIURL:         "http://localhost:5000/api",
			APIV1URL:       "http://localhost:5000/api/v1",
			TimeoutSeconds: 10,
		},
		Polling: PollingConfig{
			AlertsIntervalSeconds:    15,
			DashboardIntervalSeconds: 30,
			HistoryLimit:             500,
			DashboardHistoryLimit:    100,
			DetailHistoryLimit:       20,
			RecordsPageSize:          200,
			UsersPageSize:            20,
		},
		Alerts: AlertsConfig{
			MaxToastsPerPoll: 10,
			FeedSize:         15,
			ToastSeconds:     6,
			SeenCap:          1000,
			Notifications: NotificationConfig{
				SystemNotify: true,
			},
		},
		Display: DisplayConfig{
			RefreshRateMS: 500,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			DBPath: "~/.local/share/mixwatch/state.db",
		},
	}
}
