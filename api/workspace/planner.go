// Package workspace plans the isolated per-run working directory on the
// remote host and the shell pipeline that sets it up.
package workspace

import (
	"path"
	"strings"
	"time"
)

// maxNameLen bounds the sanitized run name so directory names stay
// manageable on the remote side.
const maxNameLen = 48

// timeLayout renders MM_DD_YY-HH_MM. Names only need to avoid collisions
// within the dedup window, so minute resolution is enough.
const timeLayout = "01_02_06-15_04"

// Env describes one isolated run directory on the remote host.
type Env struct {
	Name       string
	Path       string
	SourcePath string
	Script     string
	CreatedAt  time.Time
}

// Sanitize restricts a run name to [A-Za-z0-9_-], replacing anything else
// with an underscore, and truncates it. Sanitize is idempotent.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if len(s) > maxNameLen {
		s = s[:maxNameLen]
	}
	return s
}

// BaseDir is the per-identity directory all isolated runs live under. The
// planner never places a run outside it.
func BaseDir(user string) string {
	if user == "root" {
		return "/root/runs"
	}
	return path.Join("/home", user, "runs")
}

// Plan computes the isolated directory for a run triggered at now. The
// directory contents are seeded from sourceDir, where the run descriptor
// has already been placed.
func Plan(runName, user, sourceDir, script string, now time.Time) Env {
	name := Sanitize(runName) + "-" + now.Format(timeLayout)
	return Env{
		Name:       name,
		Path:       path.Join(BaseDir(user), name),
		SourcePath: path.Clean(sourceDir),
		Script:     script,
		CreatedAt:  now,
	}
}

// Pipeline renders the setup command sequence. Steps are sequenced with
// ";" so a failed copy cannot abort the run: the copy is best effort and
// only echoes a warning. The shell's overall exit status is the setup
// script's, which is the only one that matters.
func (e Env) Pipeline() string {
	steps := []string{
		"mkdir -p " + quote(e.Path),
		"cp -r " + quote(e.SourcePath+"/.") + " " + quote(e.Path) +
			" 2>/dev/null || echo " + quote("warning: could not copy "+e.SourcePath),
		"cd " + quote(e.Path),
		"echo " + quote("source: "+e.SourcePath),
		`echo "workdir: $(pwd)"`,
		"sh " + quote(e.Script),
	}
	return strings.Join(steps, "; ")
}

// quote single-quotes s for the remote shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
