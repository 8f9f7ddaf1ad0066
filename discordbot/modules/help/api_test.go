package help

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eientei/doorman/discordbot/router"
)

func TestRender(t *testing.T) {
	r := router.NewRouter()

	noop := func(*router.Context) error { return nil }

	r.Group("rules").SetDescription("rules gate").On("rules set", "initializes rules", noop)
	r.Group("rules").On("rules role", "sets role", noop)
	r.Group("activity").On("activity", "prints help", noop)

	out := Render(r.Groups...)

	assert.True(t, strings.HasPrefix(out, "```autohotkey\n"))
	assert.Contains(t, out, "==RULES== rules gate\n")
	assert.Contains(t, out, "rules set: initializes rules\n")
	assert.Contains(t, out, " activity: prints help\n")
	assert.True(t, strings.Index(out, "==ACTIVITY==") < strings.Index(out, "==RULES=="))
	assert.True(t, strings.Index(out, "rules role") < strings.Index(out, "rules set"))
}
