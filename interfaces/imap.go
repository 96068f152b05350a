package interfaces

import (
	"context"

	"github.com/customeros/mailmigrate/internal/models"
)

// MailboxClient is the capability set shared by the source and destination
// sessions. The transfer engine and the auto driver depend only on this
// contract, never on the concrete client.
//
// A client owns exactly one connection with at most one selected folder.
// UIDSearchAll and Fetch require a selected folder; the remaining operations
// work in the authenticated state.
type MailboxClient interface {
	Connect(ctx context.Context) error
	// Disconnect is idempotent and never fails.
	Disconnect()
	Host() string

	// ListFolders returns folder names in server order.
	ListFolders(ctx context.Context) ([]string, error)
	FolderExists(ctx context.Context, folder string) (bool, error)
	// CreateFolder succeeds when the folder already exists.
	CreateFolder(ctx context.Context, folder string) error
	// SelectFolder returns the folder's message count.
	SelectFolder(ctx context.Context, folder string) (uint32, error)

	// UIDSearchAll returns every UID in the selected folder, server order.
	UIDSearchAll(ctx context.Context) ([]uint32, error)
	Fetch(ctx context.Context, uid uint32) (*models.Message, error)
	// Append delivers msg into folder preserving flags and internal date and
	// returns the destination UID, or 0 when the server sent no APPENDUID.
	Append(ctx context.Context, folder string, msg *models.Message) (uint32, error)
}
