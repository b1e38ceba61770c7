package settings

// MergeResult is the outcome of a config merge.
type MergeResult int

const (
	MergeSuccess MergeResult = iota
	MergeAlreadyConfigured
	MergeError
)

func (r MergeResult) String() string {
	switch r {
	case MergeSuccess:
		return "success"
	case MergeAlreadyConfigured:
		return "already-configured"
	default:
		return "error"
	}
}

// MergeOptions controls Merge.
type MergeOptions struct {
	// ConfigPath overrides ~/.config/mixwatch/config.toml.
	ConfigPath string

	// Values maps dotted keys such as "backend.base_url" to the value to
	// write. Empty values are ignored.
	Values map[string]string

	// Force overwrites keys that already hold a different value.
	Force bool
}

// MergeOutput reports what Merge did.
type MergeOutput struct {
	Result   MergeResult
	Messages []string
	Warnings []string
	Err      error
}

// BackendValues returns the merge values for the backend endpoints. Empty
// arguments are left out.
func BackendValues(baseURL, apiURL, apiV1URL string) map[string]string {
	values := make(map[string]string)
	if baseURL != "" {
		values["backend.base_url"] = baseURL
	}
	if apiURL != "" {
		values["backend.api_url"] = apiURL
	}
	if apiV1URL != "" {
		values["backend.api_v1_url"] = apiV1URL
	}
	return values
}
