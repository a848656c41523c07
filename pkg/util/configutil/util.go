package configutil

// SetDefault is an interface to abstract setting Viper defaults.
type SetDefault interface {
	SetDefault(key string, value any)
}
