package appconfig

// SecretsConfig defines named secret backends.
type SecretsConfig struct {
	DefaultProvider string                    `yaml:"defaultProvider,omitempty"`
	Providers       map[string]SecretProvider `yaml:"providers,omitempty"`
}

// SecretProvider defines a single backend.
type SecretProvider struct {
	Type           string `yaml:"type,omitempty"`
	Command        string `yaml:"command,omitempty"`
	ProjectID      string `yaml:"projectId,omitempty"`
	KeyFile        string `yaml:"keyFile,omitempty"`
	Path           string `yaml:"path,omitempty"`
	Address        string `yaml:"address,omitempty"`
	Token          string `yaml:"token,omitempty"`
	Namespace      string `yaml:"namespace,omitempty"`
	Mount          string `yaml:"mount,omitempty"`
	KVVersion      int    `yaml:"kvVersion,omitempty"`
	SecretsPrefix  string `yaml:"secretsPrefix,omitempty"`
	ParamsPrefix   string `yaml:"paramsPrefix,omitempty"`
	AuthMethod     string `yaml:"authMethod,omitempty"`
	AuthMount      string `yaml:"authMount,omitempty"`
	RoleID         string `yaml:"roleId,omitempty"`
	SecretID       string `yaml:"secretId,omitempty"`
	AWSRole        string `yaml:"awsRole,omitempty"`
	AWSRegion      string `yaml:"awsRegion,omitempty"`
	AWSHeaderValue string `yaml:"awsHeaderValue,omitempty"`
}

func mergeSecrets(a, b SecretsConfig) SecretsConfig {
	out := a
	if b.DefaultProvider != "" {
		out.DefaultProvider = b.DefaultProvider
	}
	if len(b.Providers) > 0 {
		providers := map[string]SecretProvider{}
		for name, cfg := range a.Providers {
			providers[name] = cfg
		}
		for name, cfg := range b.Providers {
			providers[name] = cfg
		}
		out.Providers = providers
	}
	return out
}
