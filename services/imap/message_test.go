package imap

import (
	"context"
	"errors"
	"testing"

	goimap "github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"

	"github.com/customeros/mailmigrate/internal/logger"
)

func testClient() *Client {
	log := logger.NewAppLogger(&logger.Config{LogLevel: "fatal", LogFile: ""})
	log.InitLogger()
	return &Client{cfg: ClientConfig{Host: "imap.example.com"}, log: log}
}

func TestAppendableFlags(t *testing.T) {
	c := testClient()

	flags := c.appendableFlags([]string{
		goimap.SeenFlag,
		goimap.RecentFlag,
		"\\Answered",
		"$Forwarded",
		"broken flag",
		"",
	})

	assert.Equal(t, []string{goimap.SeenFlag, "\\Answered", "$Forwarded"}, flags)
}

func TestStripRecent(t *testing.T) {
	assert.Equal(t, []string{goimap.SeenFlag, goimap.FlaggedFlag},
		stripRecent([]string{goimap.SeenFlag, goimap.RecentFlag, goimap.FlaggedFlag}))
	assert.Empty(t, stripRecent([]string{goimap.RecentFlag}))
}

func TestIsAlreadyExists(t *testing.T) {
	assert.True(t, isAlreadyExists(&goimap.ErrStatusResp{Resp: &goimap.StatusResp{
		Type: goimap.StatusRespNo,
		Code: "ALREADYEXISTS",
		Info: "Mailbox exists",
	}}))
	assert.True(t, isAlreadyExists(errors.New("NO Mailbox already exists")))
	assert.False(t, isAlreadyExists(errors.New("NO Permission denied")))
}

func TestOperationsRequireConnection(t *testing.T) {
	c := testClient()
	ctx := context.Background()

	_, err := c.ListFolders(ctx)
	assert.Error(t, err)

	_, err = c.SelectFolder(ctx, "INBOX")
	assert.Error(t, err)

	_, err = c.UIDSearchAll(ctx)
	assert.Error(t, err)

	_, err = c.Fetch(ctx, 1)
	assert.Error(t, err)
}
