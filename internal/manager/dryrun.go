package manager

import (
	"context"
	"sort"
	"strings"

	"github.com/example/podunit/internal/envinject"
	"github.com/example/podunit/internal/history"
	"github.com/example/podunit/internal/manifest"
	"github.com/example/podunit/internal/project"
	"github.com/example/podunit/internal/secretstore"
	"github.com/example/podunit/internal/systemd"
)

const (
	secretMaskKeep   = 4
	combinedMaskKeep = 8
)

// dryRun reports what Run would do. With ShowSecrets it fetches, prints masked
// values and the rewritten manifest as a diff; nothing is written or started.
func (m *Manager) dryRun(ctx context.Context, projects []*project.Descriptor) (Summary, error) {
	var summary Summary
	if m.Options.ShowSecrets && needsRemote(projects) {
		if _, err := m.secretSource(ctx); err != nil {
			return summary, err
		}
	}
	for _, d := range projects {
		started := m.now()
		m.dryRunProject(ctx, d)
		summary.Managed = append(summary.Managed, d.Name)
		summary.Services = append(summary.Services, d.Services...)
		m.record(ctx, history.Run{StartedAt: started, FinishedAt: m.now(), Project: d.Name, Services: d.Services, Outcome: history.OutcomeDryRun})
	}
	m.printf("\n%s", warnColor.Sprint("[DRY RUN] No changes made"))
	return summary, nil
}

func (m *Manager) dryRunProject(ctx context.Context, d *project.Descriptor) {
	m.printf("\n%s", headerColor.Sprintf("=== %s [DRY RUN] ===", d.Name))

	var (
		content []byte
		dir     = m.secretsDir(d)
	)
	switch {
	case !d.Config.EnableRemoteIntegration:
		m.printf("  Remote integration disabled")
	case !m.Options.ShowSecrets:
		m.printf("  Would fetch secrets %s and params %s", d.SecretName(), d.ParamsName())
		m.printf("  Would store secrets in %s", dir)
	default:
		secrets, params := m.fetch(ctx, d)
		m.printMasked("Secrets", secrets, secretMaskKeep)
		m.printPlain("Params", params)
		m.printCombined(secrets, params)
		if len(secrets)+len(params) > 0 {
			content = m.previewRewrite(d, secrets, params, dir)
		}
	}

	if m.Validate != nil {
		if err := m.Validate(ctx, d.Name, d.ManifestPath, content); err != nil {
			m.Log.Error(err, "manifest does not validate", "project", d.Name)
			m.printf("  %s manifest does not validate", warnColor.Sprint("!"))
		} else {
			m.printf("  %s manifest validates", okColor.Sprint("✓"))
		}
	}

	for _, svc := range d.Services {
		m.printf("  Would stop %s if active", systemd.UnitName(svc))
	}
	m.printf("  Would recreate containers in %s", d.Directory)
	for _, svc := range d.Services {
		m.printf("  Would generate %s (container %s)", svc+".container", d.ContainerName(svc))
	}
}

// previewRewrite prints a diff with masked values and returns the real
// rewritten manifest for validation.
func (m *Manager) previewRewrite(d *project.Descriptor, secrets, params map[string]string, dir string) []byte {
	rewritten, err := envinject.Inject(d.Manifest, secrets, params, dir)
	if err != nil {
		m.Log.Error(err, "could not rewrite manifest", "project", d.Name)
		return nil
	}
	masked, err := envinject.Inject(d.Manifest, maskAll(secrets), params, dir)
	if err != nil {
		masked = rewritten
	}
	diff, err := manifest.Diff(d.Manifest, masked, d.ManifestPath, d.ManifestPath+" (rewritten)")
	if err != nil {
		m.Log.Error(err, "could not diff manifest", "project", d.Name)
	} else if diff != "" {
		m.printf("  Rewritten manifest:")
		for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
			m.printf("    %s", line)
		}
	}
	raw, err := manifest.Marshal(rewritten)
	if err != nil {
		return nil
	}
	return raw
}

func (m *Manager) printMasked(label string, values map[string]string, keep int) {
	if len(values) == 0 {
		return
	}
	m.printf("  %s:", label)
	for _, key := range sortedKeys(values) {
		m.printf("    %s: %s", key, secretstore.Mask(values[key], keep))
	}
}

// printPlain prints parameters, which are not secret, unmasked.
func (m *Manager) printPlain(label string, values map[string]string) {
	if len(values) == 0 {
		return
	}
	m.printf("  %s:", label)
	for _, key := range sortedKeys(values) {
		m.printf("    %s: %s", key, values[key])
	}
}

func (m *Manager) printCombined(secrets, params map[string]string) {
	combined := envinject.Merge(params, secrets)
	if len(combined) == 0 {
		return
	}
	m.printf("  Environment to inject:")
	for _, key := range sortedKeys(combined) {
		origin := "param"
		if _, ok := secrets[key]; ok {
			origin = "secret"
		}
		m.printf("    %s: %s (from %s)", key, secretstore.Mask(combined[key], combinedMaskKeep), origin)
	}
}

func maskAll(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = secretstore.Mask(v, combinedMaskKeep)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
