// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"strings"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origFlags   ldFlags
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	if buildFlags != nil {
		origFlags = *buildFlags
	}

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	if buildFlags != nil {
		*buildFlags = origFlags
	}

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantName    string
		wantVer     string
	}{
		{
			"All flags set",
			"testapp",
			"2026-08-21",
			"abcdef123",
			"v1.0.0",
			"testapp",
			"v1.0.0",
		},
		{
			"No flags falls back to dev defaults",
			"",
			"",
			"",
			"",
			"spectra",
			"dev",
		},
		{
			"Partial flags keep remaining defaults",
			"testapp",
			"",
			"",
			"v2.0.0",
			"testapp",
			"v2.0.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildFlags = &ldFlags{
				Name:    "spectra",
				Time:    "unknown",
				Commit:  "unknown",
				Version: "dev",
			}

			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			Initialize()

			if buildFlags.Name != tt.wantName {
				t.Errorf("buildFlags.Name = %v, want %v", buildFlags.Name, tt.wantName)
			}
			if buildFlags.Version != tt.wantVer {
				t.Errorf("buildFlags.Version = %v, want %v", buildFlags.Version, tt.wantVer)
			}
		})
	}
}

func TestGetBuildFlags(t *testing.T) {
	expected := ldFlags{
		Name:    "testapp",
		Time:    "2026-08-21",
		Commit:  "abcdef123",
		Version: "v1.0.0",
	}
	buildFlags = &expected

	flags := GetBuildFlags()

	if flags.Name != expected.Name ||
		flags.Time != expected.Time ||
		flags.Commit != expected.Commit ||
		flags.Version != expected.Version {
		t.Errorf("GetBuildFlags() = %+v, want %+v", flags, expected)
	}
}

func TestStringFormat(t *testing.T) {
	f := &ldFlags{Name: "spectra", Time: "now", Commit: "deadbeef", Version: "v0.3.0"}

	s := f.String()
	for _, want := range []string{"spectra", "v0.3.0", "deadbeef", "now"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
