package main

import (
	stdtesting "testing"

	"github.com/stretchr/testify/assert"

	"github.com/propertyhub/propertyhub/internal/app"
	_ "github.com/propertyhub/propertyhub/testing"
)

func TestMainSkipsStartupInTestMode(t *stdtesting.T) {
	app.RefreshTestMode()
	assert.True(t, app.InTestMode())
	assert.NotPanics(t, main)
}
