package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/customeros/mailmigrate/internal/models"
)

type appendedMessage struct {
	Folder  string
	UID     uint32
	Payload []byte
	Date    time.Time
	Flags   []string
}

// fakeMailbox is an in-memory stand-in for one IMAP session.
type fakeMailbox struct {
	host    string
	folders []string
	uids    []uint32

	messages map[uint32]*models.Message
	// fetchFailures[uid] counts down: each Fetch of uid fails until zero.
	fetchFailures map[uint32]int
	fetchErr      func(uid uint32) error

	appendFailures int
	appendErr      error
	appended       []appendedMessage
	nextDestUID    uint32

	existing  map[string]bool
	created   []string
	createErr map[string]error
	selectErr map[string]error
	selected  string
	searchErr error
}

func newFakeMailbox(host string) *fakeMailbox {
	return &fakeMailbox{
		host:          host,
		messages:      map[uint32]*models.Message{},
		fetchFailures: map[uint32]int{},
		existing:      map[string]bool{},
		createErr:     map[string]error{},
		selectErr:     map[string]error{},
		nextDestUID:   100,
	}
}

func (f *fakeMailbox) addMessage(uid uint32, size int, flags ...string) {
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte('a' + uid%26)
	}
	f.uids = append(f.uids, uid)
	f.messages[uid] = &models.Message{
		SourceUID:    uid,
		Payload:      payload,
		InternalDate: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(uid) * time.Hour),
		Flags:        flags,
	}
}

func (f *fakeMailbox) Connect(ctx context.Context) error { return nil }
func (f *fakeMailbox) Disconnect()                       {}
func (f *fakeMailbox) Host() string                      { return f.host }

func (f *fakeMailbox) ListFolders(ctx context.Context) ([]string, error) {
	return f.folders, nil
}

func (f *fakeMailbox) FolderExists(ctx context.Context, folder string) (bool, error) {
	return f.existing[folder], nil
}

func (f *fakeMailbox) CreateFolder(ctx context.Context, folder string) error {
	if err := f.createErr[folder]; err != nil {
		return err
	}
	f.existing[folder] = true
	f.created = append(f.created, folder)
	return nil
}

func (f *fakeMailbox) SelectFolder(ctx context.Context, folder string) (uint32, error) {
	if err := f.selectErr[folder]; err != nil {
		return 0, err
	}
	f.selected = folder
	return uint32(len(f.uids)), nil
}

func (f *fakeMailbox) UIDSearchAll(ctx context.Context) ([]uint32, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return append([]uint32(nil), f.uids...), nil
}

func (f *fakeMailbox) Fetch(ctx context.Context, uid uint32) (*models.Message, error) {
	if remaining := f.fetchFailures[uid]; remaining > 0 {
		f.fetchFailures[uid] = remaining - 1
		if f.fetchErr != nil {
			return nil, f.fetchErr(uid)
		}
		return nil, fmt.Errorf("transient fetch failure for UID %d", uid)
	}
	msg, ok := f.messages[uid]
	if !ok {
		return nil, fmt.Errorf("no such UID %d", uid)
	}
	copied := *msg
	copied.Payload = append([]byte(nil), msg.Payload...)
	return &copied, nil
}

func (f *fakeMailbox) Append(ctx context.Context, folder string, msg *models.Message) (uint32, error) {
	if f.appendErr != nil && f.appendFailures != 0 {
		if f.appendFailures > 0 {
			f.appendFailures--
		}
		return 0, f.appendErr
	}
	f.nextDestUID++
	f.appended = append(f.appended, appendedMessage{
		Folder:  folder,
		UID:     msg.SourceUID,
		Payload: append([]byte(nil), msg.Payload...),
		Date:    msg.InternalDate,
		Flags:   append([]string(nil), msg.Flags...),
	})
	return f.nextDestUID, nil
}

type cacheKey struct {
	uid    uint32
	folder string
}

// fakeCache is an in-memory resume cache.
type fakeCache struct {
	marked  map[cacheKey]uint32
	sizes   map[cacheKey]int64
	markErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		marked: map[cacheKey]uint32{},
		sizes:  map[cacheKey]int64{},
	}
}

func (c *fakeCache) IsTransferred(ctx context.Context, sourceUID uint32, folder string) (bool, error) {
	_, ok := c.marked[cacheKey{sourceUID, folder}]
	return ok, nil
}

func (c *fakeCache) TransferredUIDs(ctx context.Context, folder string) (map[uint32]struct{}, error) {
	set := map[uint32]struct{}{}
	for key := range c.marked {
		if key.folder == folder {
			set[key.uid] = struct{}{}
		}
	}
	return set, nil
}

func (c *fakeCache) MarkTransferred(ctx context.Context, sourceUID, destUID uint32, folder string, size int64) error {
	if c.markErr != nil {
		return c.markErr
	}
	key := cacheKey{sourceUID, folder}
	if _, ok := c.marked[key]; ok {
		return nil
	}
	c.marked[key] = destUID
	c.sizes[key] = size
	return nil
}

func (c *fakeCache) Statistics(ctx context.Context, folder string) (*models.CacheStats, error) {
	stats := &models.CacheStats{PerFolder: map[string]int64{}}
	for key, size := range c.sizes {
		if folder != "" && key.folder != folder {
			continue
		}
		stats.Count++
		stats.TotalSize += size
		stats.PerFolder[key.folder]++
	}
	return stats, nil
}

func (c *fakeCache) Close() error { return nil }
