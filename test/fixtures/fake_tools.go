// Package fixtures writes fake font-tool and system-ops executables for
// integration tests.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
)

// fontToolScript validates anything whose name lacks "bad" and reports the
// file stem as name and family.
const fontToolScript = `#!/bin/sh
verb="$1"
base=$(basename "$2")
case "$base" in
*bad*) echo "not a font: $base" >&2; exit 1 ;;
esac
case "$verb" in
validate) exit 0 ;;
analyze)
	stem="${base%.*}"
	printf '{"name":"%s","family":"%s","style":"Regular","version":"1.000"}\n' "$stem" "$stem"
	;;
*) echo "unknown verb $verb" >&2; exit 2 ;;
esac
`

// systemOpsScript mimics SystemOps.ps1 on top of a plain directory.
const systemOpsScript = `#!/bin/sh
fonts=%q
verb=""
font=""
while [ $# -gt 0 ]; do
	case "$1" in
	-Command) verb="$2"; shift 2 ;;
	-FontPath) font="$2"; shift 2 ;;
	-FontName) shift 2 ;;
	*) shift ;;
	esac
done
case "$verb" in
register) cp "$font" "$fonts/" && echo "SUCCESS" ;;
unregister)
	if [ -f "$fonts/$font" ]; then rm -f "$fonts/$font" && echo "SUCCESS"; else echo "ERROR: not installed"; fi
	;;
restart-explorer) touch %q; echo "SUCCESS" ;;
*) echo "unknown verb $verb" >&2; exit 1 ;;
esac
`

// FakeToolchain lays out a fake bin/ directory and OS font directory.
type FakeToolchain struct {
	Root     string
	FontsDir string
}

// NewFakeToolchain creates a fake toolchain generator rooted at root.
func NewFakeToolchain(root string) *FakeToolchain {
	return &FakeToolchain{Root: root, FontsDir: filepath.Join(root, "Fonts")}
}

// FontToolPath is where Create writes the fake font tool.
func (f *FakeToolchain) FontToolPath() string {
	return filepath.Join(f.Root, "bin", "font_tool")
}

// ScriptPath is where Create writes the fake system-ops script.
func (f *FakeToolchain) ScriptPath() string {
	return filepath.Join(f.Root, "bin", "SystemOps.sh")
}

// RestartMarker is touched by the restart-explorer verb.
func (f *FakeToolchain) RestartMarker() string {
	return filepath.Join(f.Root, "restarted")
}

// Create writes both scripts and the empty fonts directory.
func (f *FakeToolchain) Create() error {
	if err := os.MkdirAll(filepath.Join(f.Root, "bin"), 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(f.FontsDir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(f.FontToolPath(), []byte(fontToolScript), 0755); err != nil {
		return err
	}
	script := fmt.Sprintf(systemOpsScript, f.FontsDir, f.RestartMarker())
	return os.WriteFile(f.ScriptPath(), []byte(script), 0755)
}

// WriteFonts creates placeholder font files in dir. Their content is not a
// real font; the fake tool only looks at names.
func WriteFonts(dir string, names ...string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(names))
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("placeholder "+n), 0644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Installed reports whether name is present in the fake fonts directory.
func (f *FakeToolchain) Installed(name string) bool {
	_, err := os.Stat(filepath.Join(f.FontsDir, name))
	return err == nil
}
