package core_test

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/testutil"
)

func TestEmailMessage_Render(t *testing.T) {
	conf := testutil.Config(t)
	core.ParseEmailTemplates(testutil.Logger(conf), true /* strict */)
	to := []mail.Address{{Name: "Hero", Address: "hero@test.cd"}}

	t.Run("template", func(t *testing.T) {
		msg := &core.EmailMessage{
			To:           to,
			TemplateName: "course_completed",
			TemplateData: map[string]interface{}{"Name": "Hero", "CourseTitle": "Muralism", "CourseID": "42"},
		}
		require.NoError(t, msg.Render("https://sanaa.test"))
		assert.True(t, msg.HasRecipients())
		assert.True(t, msg.HasContent())
		assert.Contains(t, msg.TextContent, "Hi Hero")
		assert.Contains(t, msg.TextContent, `"Muralism"`)
		assert.Contains(t, msg.TextContent, "https://sanaa.test/student/42")
		assert.Contains(t, msg.HTMLContent, "https://sanaa.test/student/42")
	})

	t.Run("html is escaped", func(t *testing.T) {
		msg := &core.EmailMessage{
			To:           to,
			TemplateName: "course_completed",
			TemplateData: map[string]interface{}{"Name": "<b>Hero</b>", "CourseTitle": "Muralism", "CourseID": "42"},
		}
		require.NoError(t, msg.Render("https://sanaa.test"))
		assert.Contains(t, msg.TextContent, "<b>Hero</b>")
		assert.NotContains(t, msg.HTMLContent, "<b>Hero</b>")
	})

	t.Run("missing data", func(t *testing.T) {
		msg := &core.EmailMessage{To: to, TemplateName: "course_completed", TemplateData: map[string]interface{}{}}
		assert.Error(t, msg.Render("https://sanaa.test"))
	})

	t.Run("unknown template", func(t *testing.T) {
		msg := &core.EmailMessage{To: to, TemplateName: "lol"}
		assert.EqualError(t, msg.Render(""), `text template "lol" not found`)
	})

	t.Run("plain body", func(t *testing.T) {
		msg := &core.EmailMessage{BodyStr: "Hello"}
		require.NoError(t, msg.Render(""))
		assert.Equal(t, "Hello", msg.TextContent)
		assert.Empty(t, msg.HTMLContent)
		assert.False(t, msg.HasRecipients())
	})
}
