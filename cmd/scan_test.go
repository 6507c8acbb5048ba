package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanCommandAlwaysWaits(t *testing.T) {
	// the manager lives in this process, so a queued scan cannot outlive the command
	assert.Nil(t, scanCmd.Flags().Lookup("no-wait"))
	assert.NotNil(t, scanCmd.Flags().Lookup("timeout"))
}
