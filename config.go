package contractor

import "github.com/goliatone/go-contractor/internal/runtimeconfig"

var (
	ErrStorageDriverUnknown    = runtimeconfig.ErrStorageDriverUnknown
	ErrStorageDSNRequired      = runtimeconfig.ErrStorageDSNRequired
	ErrLoggingProviderRequired = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown  = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid     = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid    = runtimeconfig.ErrLoggingFormatInvalid
	ErrRetentionInvalid        = runtimeconfig.ErrRetentionInvalid
	ErrPaymentTermsInvalid     = runtimeconfig.ErrPaymentTermsInvalid
	ErrTaxRateInvalid          = runtimeconfig.ErrTaxRateInvalid
	ErrExportProviderUnknown   = runtimeconfig.ErrExportProviderUnknown
	ErrExportBucketRequired    = runtimeconfig.ErrExportBucketRequired
	ErrExportEndpointRequired  = runtimeconfig.ErrExportEndpointRequired
	ErrExportDirRequired       = runtimeconfig.ErrExportDirRequired
	ErrSchedulingRequiresBlog  = runtimeconfig.ErrSchedulingRequiresBlog
	ErrBlogContentDirRequired  = runtimeconfig.ErrBlogContentDirRequired
)

type (
	Config         = runtimeconfig.Config
	StorageConfig  = runtimeconfig.StorageConfig
	CacheConfig    = runtimeconfig.CacheConfig
	HTTPConfig     = runtimeconfig.HTTPConfig
	LoggingConfig  = runtimeconfig.LoggingConfig
	InvoicesConfig = runtimeconfig.InvoicesConfig
	ActivityConfig = runtimeconfig.ActivityConfig
	RealtimeConfig = runtimeconfig.RealtimeConfig
	ExportsConfig  = runtimeconfig.ExportsConfig
	BlogConfig     = runtimeconfig.BlogConfig
	LinksConfig    = runtimeconfig.LinksConfig
	CommandsConfig = runtimeconfig.CommandsConfig
	Features       = runtimeconfig.Features
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads a YAML file over the defaults and applies CONTRACTOR_*
// environment overrides. An empty path only applies the environment.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.Load(path)
}
