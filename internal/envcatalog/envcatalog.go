package envcatalog

// VarInfo documents one environment variable podunit or its backends read.
type VarInfo struct {
	Category    string
	Name        string
	Description string
	Dynamic     bool
	// Sensitive values are masked when displayed.
	Sensitive bool
}

func Catalog() []VarInfo {
	return []VarInfo{
		{
			Category:    "Config",
			Name:        "PODUNIT_CONFIG",
			Description: "Path to the podunit config file.",
		},
		{
			Category:    "Config",
			Name:        "PODUNIT_<FLAG>",
			Dynamic:     true,
			Description: "Set any podunit flag via environment (hyphens become underscores). Example: PODUNIT_BASE_DIR=~/compose.",
		},
		{
			Category:    "Config",
			Name:        "XDG_CONFIG_HOME",
			Description: "Base directory for podunit/config.yaml.",
		},
		{
			Category:    "Config",
			Name:        "XDG_STATE_HOME",
			Description: "Base directory for podunit/history.db.",
		},
		{
			Category:    "CLI",
			Name:        "PODUNIT_YES",
			Description: "Start disabled projects without asking (equivalent to passing --yes).",
		},
		{
			Category:    "CLI",
			Name:        "USER",
			Description: "Account passed to loginctl enable-linger.",
		},
		{
			Category:    "Output",
			Name:        "NO_COLOR",
			Description: "Disable ANSI color output (any non-empty value).",
		},
		{
			Category:    "Secrets",
			Name:        "VAULT_ADDR",
			Description: "Vault address when the vault provider does not set one.",
		},
		{
			Category:    "Secrets",
			Name:        "VAULT_TOKEN",
			Sensitive:   true,
			Description: "Vault token used when the vault provider configures no auth method.",
		},
		{
			Category:    "Secrets",
			Name:        "AWS_REGION",
			Description: "Region for Vault AWS IAM authentication.",
		},
		{
			Category:    "Secrets",
			Name:        "CLOUDSDK_CONFIG",
			Description: "gcloud configuration directory used by the gcloud backend.",
		},
	}
}
