package registry

import (
	"fmt"
	"regexp"
	"strings"

	"mcp-meta-server/internal/apperr"
)

// commandWhitelist is the set of executables a provider config is allowed
// to spawn.
var commandWhitelist = map[string]bool{
	"node": true, "python": true, "python3": true, "npx": true,
	"uv": true, "pipx": true, "deno": true, "bun": true,
}

var (
	shellMetaRe = regexp.MustCompile("[;&|`$(){}\\[\\]]")
	rmDashRe    = regexp.MustCompile(`rm\s+-`)
)

// ValidateCommand rejects configs whose command is empty, whose executable
// isn't whitelisted, or any of whose elements contains a disallowed
// pattern (shell metacharacters, "..", a /dev/ prefix, "rm -*", "sudo").
func ValidateCommand(cfg Config) error {
	if len(cfg.Command) == 0 {
		return apperr.Config("empty command", nil)
	}
	if !commandWhitelist[cfg.Command[0]] {
		return apperr.Config(fmt.Sprintf("executable %q is not in the whitelist", cfg.Command[0]), nil)
	}
	for _, arg := range cfg.Command {
		if err := checkElement(arg); err != nil {
			return apperr.Config(fmt.Sprintf("invalid command element %q", arg), err)
		}
	}
	return nil
}

func checkElement(s string) error {
	if shellMetaRe.MatchString(s) {
		return errInvalid("contains a shell metacharacter")
	}
	if strings.Contains(s, "..") {
		return errInvalid("contains \"..\"")
	}
	if strings.HasPrefix(s, "/dev/") {
		return errInvalid("references /dev/")
	}
	if rmDashRe.MatchString(s) {
		return errInvalid("looks like rm -*")
	}
	if strings.Contains(s, "sudo") {
		return errInvalid("references sudo")
	}
	return nil
}

type invalidElementError string

func (e invalidElementError) Error() string { return string(e) }

func errInvalid(msg string) error { return invalidElementError(msg) }

// SanitizeArgs strips shell metacharacters and ".." from each argument
// before handing the command to the spawner. Applied after ValidateCommand
// passes, as defense in depth.
func SanitizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		a = shellMetaRe.ReplaceAllString(a, "")
		a = strings.ReplaceAll(a, "..", "")
		out[i] = a
	}
	return out
}
