package secretstore

// Config describes the available secret backends.
type Config struct {
	DefaultProvider string                    `yaml:"defaultProvider,omitempty" json:"defaultProvider,omitempty"`
	Providers       map[string]ProviderConfig `yaml:"providers,omitempty" json:"providers,omitempty"`
}

// ProviderConfig captures backend-specific settings. Only the fields relevant
// to Type are read.
type ProviderConfig struct {
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	// gcloud
	Command   string `yaml:"command,omitempty" json:"command,omitempty"`
	ProjectID string `yaml:"projectId,omitempty" json:"projectId,omitempty"`
	KeyFile   string `yaml:"keyFile,omitempty" json:"keyFile,omitempty"`

	// file
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// vault
	Address        string `yaml:"address,omitempty" json:"address,omitempty"`
	Token          string `yaml:"token,omitempty" json:"token,omitempty"`
	Namespace      string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Mount          string `yaml:"mount,omitempty" json:"mount,omitempty"`
	KVVersion      int    `yaml:"kvVersion,omitempty" json:"kvVersion,omitempty"`
	SecretsPrefix  string `yaml:"secretsPrefix,omitempty" json:"secretsPrefix,omitempty"`
	ParamsPrefix   string `yaml:"paramsPrefix,omitempty" json:"paramsPrefix,omitempty"`
	AuthMethod     string `yaml:"authMethod,omitempty" json:"authMethod,omitempty"`
	AuthMount      string `yaml:"authMount,omitempty" json:"authMount,omitempty"`
	RoleID         string `yaml:"roleId,omitempty" json:"roleId,omitempty"`
	SecretID       string `yaml:"secretId,omitempty" json:"secretId,omitempty"`
	AWSRole        string `yaml:"awsRole,omitempty" json:"awsRole,omitempty"`
	AWSRegion      string `yaml:"awsRegion,omitempty" json:"awsRegion,omitempty"`
	AWSHeaderValue string `yaml:"awsHeaderValue,omitempty" json:"awsHeaderValue,omitempty"`
}
