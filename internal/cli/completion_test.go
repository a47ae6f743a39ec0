package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionCmd_Bash(t *testing.T) {
	resetRootCmd(t)

	rootCmd.SetArgs([]string{"completion", "bash"})

	var code int
	output := captureStdout(t, func() {
		code = Execute()
	})

	assert.Equal(t, 0, code, "exit code should be 0")
	assert.NotEmpty(t, output, "bash completion output should not be empty")
	assert.Contains(t, output, "bash", "bash completion should contain 'bash'")
}

func TestCompletionCmd_Zsh(t *testing.T) {
	resetRootCmd(t)

	rootCmd.SetArgs([]string{"completion", "zsh"})

	var code int
	output := captureStdout(t, func() {
		code = Execute()
	})

	assert.Equal(t, 0, code, "exit code should be 0")
	assert.NotEmpty(t, output, "zsh completion output should not be empty")
	assert.Contains(t, output, "#compdef", "zsh completion should start with #compdef")
}

func TestCompletionCmd_Fish(t *testing.T) {
	resetRootCmd(t)

	rootCmd.SetArgs([]string{"completion", "fish"})

	var code int
	output := captureStdout(t, func() {
		code = Execute()
	})

	assert.Equal(t, 0, code, "exit code should be 0")
	assert.NotEmpty(t, output, "fish completion output should not be empty")
}

func TestCompletionCmd_Powershell(t *testing.T) {
	resetRootCmd(t)

	rootCmd.SetArgs([]string{"completion", "powershell"})

	var code int
	output := captureStdout(t, func() {
		code = Execute()
	})

	assert.Equal(t, 0, code, "exit code should be 0")
	assert.NotEmpty(t, output, "powershell completion output should not be empty")
}

func TestCompletionCmd_InvalidShell(t *testing.T) {
	resetRootCmd(t)

	rootCmd.SetArgs([]string{"completion", "tcsh"})

	code := Execute()
	assert.Equal(t, 1, code, "unsupported shell should return exit code 1")
}

func TestCompletionCmd_NoArgs(t *testing.T) {
	resetRootCmd(t)

	rootCmd.SetArgs([]string{"completion"})

	code := Execute()
	assert.Equal(t, 1, code, "completion requires a shell argument")
}
