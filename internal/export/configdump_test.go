package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/sonarkit-io/sonarkit/internal/sonar"
)

type fakeSettings struct {
	keys []string
}

func (f *fakeSettings) Values(_ context.Context, keys []string) ([]sonar.Setting, error) {
	f.keys = keys
	return []sonar.Setting{
		{Key: "sonar.core.serverBaseURL", Value: "https://sonar.example.com"},
		{Key: "sonar.forceAuthentication", Value: "true"},
	}, nil
}

func (f *fakeSettings) QualityGates(context.Context) ([]sonar.QualityGate, error) {
	return []sonar.QualityGate{{
		Name:      "Sonar way",
		IsDefault: true,
		IsBuiltIn: true,
		Conditions: []sonar.GateCondition{
			{Metric: "new_coverage", Op: "LT", Error: "80"},
		},
	}}, nil
}

func (f *fakeSettings) QualityProfiles(context.Context) ([]sonar.QualityProfile, error) {
	return []sonar.QualityProfile{
		{Key: "go-sonar-way", Name: "Sonar way", Language: "go", IsDefault: true},
	}, nil
}

func (f *fakeSettings) ProjectBinding(context.Context, string) (*sonar.ProjectBinding, error) {
	return nil, &sonar.APIError{StatusCode: 404}
}

func TestConfigDump_ReportsInstanceURL(t *testing.T) {
	settings := &fakeSettings{}
	client := exportClient(&fakeIssues{}, &fakeHotspots{}, &fakeProjects{})
	client.Settings = settings
	exporter := NewExporter(client, hclog.NewNullLogger())

	dump, err := exporter.ConfigDump(context.Background(), []string{"sonar.core.serverBaseURL"})
	if err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	if dump.URL != "https://sonar.example.com" {
		t.Fatalf("expected the instance URL without the API suffix, got %q", dump.URL)
	}
	if dump.ExportedAt.IsZero() {
		t.Fatal("expected the export timestamp to be set")
	}
	if len(settings.keys) != 1 || settings.keys[0] != "sonar.core.serverBaseURL" {
		t.Fatalf("expected the key filter passed through, got %v", settings.keys)
	}
	if len(dump.Settings) != 2 || len(dump.QualityGates) != 1 || len(dump.QualityProfiles) != 1 {
		t.Fatalf("expected all sections populated, got %d/%d/%d",
			len(dump.Settings), len(dump.QualityGates), len(dump.QualityProfiles))
	}
}

func TestWriteYAML_UsesSnakeCaseKeys(t *testing.T) {
	dump := &ConfigDump{
		URL: "https://sonar.example.com",
		QualityGates: []sonar.QualityGate{
			{Name: "Sonar way", IsDefault: true},
		},
	}

	var buf bytes.Buffer
	if err := WriteYAML(&buf, dump); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "quality_gates:") {
		t.Fatalf("expected snake_case section names, got:\n%s", out)
	}
	if !strings.Contains(out, "is_default: true") {
		t.Fatalf("expected gate attributes rendered, got:\n%s", out)
	}
}
