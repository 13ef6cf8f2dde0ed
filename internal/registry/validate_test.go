package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCommand_RejectsEmpty(t *testing.T) {
	assert.Error(t, ValidateCommand(Config{}))
}

func TestValidateCommand_RejectsNonWhitelistedExecutable(t *testing.T) {
	assert.Error(t, ValidateCommand(Config{Command: []string{"bash", "-c", "echo hi"}}))
}

func TestValidateCommand_AcceptsWhitelisted(t *testing.T) {
	assert.NoError(t, ValidateCommand(Config{Command: []string{"node", "server.js"}}))
}

func TestValidateCommand_RejectsShellMetacharacters(t *testing.T) {
	assert.Error(t, ValidateCommand(Config{Command: []string{"node", "server.js; rm -rf /"}}))
}

func TestValidateCommand_RejectsDotDot(t *testing.T) {
	assert.Error(t, ValidateCommand(Config{Command: []string{"node", "../../etc/passwd"}}))
}

func TestValidateCommand_RejectsDevPrefix(t *testing.T) {
	assert.Error(t, ValidateCommand(Config{Command: []string{"node", "/dev/sda"}}))
}

func TestValidateCommand_RejectsRmDash(t *testing.T) {
	assert.Error(t, ValidateCommand(Config{Command: []string{"node", "rm -rf x"}}))
}

func TestValidateCommand_RejectsSudo(t *testing.T) {
	assert.Error(t, ValidateCommand(Config{Command: []string{"node", "sudo reboot"}}))
}

func TestSanitizeArgs_StripsMetacharactersAndDotDot(t *testing.T) {
	out := SanitizeArgs([]string{"a;b", "../c", "d$(e)"})
	assert.Equal(t, []string{"ab", "c", "de"}, out)
}
