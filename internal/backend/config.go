package backend

import (
	"fmt"

	"moneta/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.LedgerBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.LedgerBackend)
	}

	return Config{
		Type: backendType,

		APIURL:   appConfig.LedgerAPIURL,
		Email:    appConfig.LedgerEmail,
		Password: appConfig.LedgerPassword,

		DBPath: appConfig.LedgerDBPath,

		UndoWindow: appConfig.UndoWindow,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case RemoteBackend:
		if c.APIURL == "" {
			return fmt.Errorf("API URL is required for remote backend")
		}
		if c.Email == "" || c.Password == "" {
			return fmt.Errorf("email and password are required for remote backend")
		}

	case LocalBackend:
		if c.DBPath == "" {
			return fmt.Errorf("database path is required for local backend")
		}

	case MemoryBackend:
		// Memory backend doesn't require additional validation
	}

	if c.UndoWindow < 0 {
		return fmt.Errorf("undo window must not be negative")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{RemoteBackend, LocalBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
