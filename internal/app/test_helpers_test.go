package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/clock"
	"github.com/example/puzzbot/internal/core/category"
	"github.com/example/puzzbot/internal/ctxutil"
	"github.com/example/puzzbot/internal/keylock"
	"github.com/example/puzzbot/internal/logging"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockPuzzleRepository implements secondary.PuzzleRepository for testing.
type mockPuzzleRepository struct {
	mu        sync.Mutex
	puzzles   map[string]*secondary.PuzzleRecord
	writes    []string // "id.field=value"
	updateErr error
	listCalls int
}

func newMockPuzzleRepository() *mockPuzzleRepository {
	return &mockPuzzleRepository{puzzles: make(map[string]*secondary.PuzzleRecord)}
}

func (m *mockPuzzleRepository) add(r *secondary.PuzzleRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puzzles[r.ID] = r
}

func (m *mockPuzzleRepository) get(id string) secondary.PuzzleRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.puzzles[id]
}

func (m *mockPuzzleRepository) GetByID(ctx context.Context, id string) (*secondary.PuzzleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.puzzles[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, apperr.NotFound("get puzzle", "puzzle %s not found", id)
}

func (m *mockPuzzleRepository) GetByChannel(ctx context.Context, channelID string) (*secondary.PuzzleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.puzzles {
		if r.ChannelID == channelID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("get puzzle", "Error: Could not find a puzzle for channel <#%s>", channelID)
}

func (m *mockPuzzleRepository) List(ctx context.Context, filters secondary.PuzzleFilters) ([]*secondary.PuzzleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	var out []*secondary.PuzzleRecord
	for _, r := range m.puzzles {
		if filters.Round != "" && r.RoundName != filters.Round {
			continue
		}
		if filters.Status != "" && r.Status != filters.Status {
			continue
		}
		if filters.Location != "" && r.Location != filters.Location {
			continue
		}
		if filters.ExcludeSolved && r.Status == "Solved" {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockPuzzleRepository) UpdateField(ctx context.Context, id, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	r, ok := m.puzzles[id]
	if !ok {
		return apperr.NotFound("update puzzle", "puzzle %s not found", id)
	}
	switch field {
	case "status":
		r.Status = value
	case "answer":
		r.Answer = value
	case "xyzloc":
		r.Location = value
	case "comments":
		r.Comments = value
	case "chat_channel_id":
		r.ChannelID = value
	default:
		return fmt.Errorf("unexpected field %s", field)
	}
	m.writes = append(m.writes, fmt.Sprintf("%s.%s=%s", id, field, value))
	return nil
}

// mockRoundRepository implements secondary.RoundRepository for testing.
type mockRoundRepository struct {
	rounds    []*secondary.RoundRecord
	createErr error
}

func (m *mockRoundRepository) GetByName(ctx context.Context, name string) (*secondary.RoundRecord, error) {
	for _, r := range m.rounds {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("get round", "round %q not found", name)
}

func (m *mockRoundRepository) List(ctx context.Context) ([]*secondary.RoundRecord, error) {
	out := make([]*secondary.RoundRecord, len(m.rounds))
	for i, r := range m.rounds {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}

func (m *mockRoundRepository) Create(ctx context.Context, name string) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.rounds = append(m.rounds, &secondary.RoundRecord{ID: strconv.Itoa(len(m.rounds) + 1), Name: name, Status: "New"})
	return nil
}

func (m *mockRoundRepository) UpdateField(ctx context.Context, id, field, value string) error {
	for _, r := range m.rounds {
		if r.ID == id {
			switch field {
			case "status":
				r.Status = value
			case "round_uri":
				r.RoundURI = value
			}
			return nil
		}
	}
	return apperr.NotFound("update round", "round %s not found", id)
}

// fakePlatform is an in-memory guild implementing secondary.Platform.
type fakePlatform struct {
	mu       sync.Mutex
	nextID   int
	groups   []*secondary.GroupInfo // listing order
	channels map[string]*secondary.ChannelInfo
	sent     []secondary.OutboundMessage
	pins     []string // message ids
	reacts   []string // "messageID:emoji"
	renames  []string // "channelID:name"
	created  []string // "channelID:groupID"
	voice    map[string]*secondary.VoiceLocation
	members  map[string]string // user id -> voice channel id

	deletedGroups   []string
	deletedChannels []string
	auditRenames    map[string]time.Time

	auditErr  error
	cloneErr  error
	sendErr   error
	renameErr error
	clones    int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		channels:     make(map[string]*secondary.ChannelInfo),
		voice:        make(map[string]*secondary.VoiceLocation),
		members:      make(map[string]string),
		auditRenames: make(map[string]time.Time),
	}
}

func (f *fakePlatform) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *fakePlatform) addGroup(id, name string, position int, members ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = append(f.groups, &secondary.GroupInfo{ID: id, Name: name, Position: position})
	sort.SliceStable(f.groups, func(i, j int) bool { return f.groups[i].Position < f.groups[j].Position })
	for _, m := range members {
		f.channels[m] = &secondary.ChannelInfo{ID: m, Name: m, GroupID: id}
		f.groupLocked(id).MemberChannels = append(f.groupLocked(id).MemberChannels, m)
	}
}

func (f *fakePlatform) addChannel(id, name, groupID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[id] = &secondary.ChannelInfo{ID: id, Name: name, GroupID: groupID}
	if g := f.groupLocked(groupID); g != nil {
		g.MemberChannels = append(g.MemberChannels, id)
	}
}

func (f *fakePlatform) addTable(id, name, categoryName string, occupants int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voice[id] = &secondary.VoiceLocation{ID: id, Name: name, Category: categoryName, Occupants: occupants}
}

func (f *fakePlatform) setOccupants(id string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voice[id].Occupants = n
}

func (f *fakePlatform) groupLocked(id string) *secondary.GroupInfo {
	for _, g := range f.groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// groupOf returns the name of the group holding channelID.
func (f *fakePlatform) groupOf(channelID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		for _, m := range g.MemberChannels {
			if m == channelID {
				return g.Name
			}
		}
	}
	return ""
}

func (f *fakePlatform) groupNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.groups))
	for i, g := range f.groups {
		names[i] = g.Name
	}
	return names
}

func (f *fakePlatform) sentContents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.ChannelID + ": " + m.Content
	}
	return out
}

func (f *fakePlatform) GetChannel(ctx context.Context, id string) (*secondary.ChannelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[id]
	if !ok {
		return nil, apperr.NotFound("get channel", "channel %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakePlatform) CreateChannel(ctx context.Context, req secondary.CreateChannelRequest) (*secondary.ChannelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &secondary.ChannelInfo{ID: f.id("C"), Name: req.Name, GroupID: req.GroupID}
	f.channels[c.ID] = c
	f.created = append(f.created, c.ID+":"+req.GroupID)
	if g := f.groupLocked(req.GroupID); g != nil {
		g.MemberChannels = append(g.MemberChannels, c.ID)
	}
	cp := *c
	return &cp, nil
}

func (f *fakePlatform) RenameChannel(ctx context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return f.renameErr
	}
	c, ok := f.channels[id]
	if !ok {
		return apperr.NotFound("rename channel", "channel %s not found", id)
	}
	c.Name = name
	f.renames = append(f.renames, id+":"+name)
	return nil
}

func (f *fakePlatform) detachLocked(id string) {
	for _, g := range f.groups {
		for i, m := range g.MemberChannels {
			if m == id {
				g.MemberChannels = append(g.MemberChannels[:i:i], g.MemberChannels[i+1:]...)
				break
			}
		}
	}
}

func (f *fakePlatform) MoveChannel(ctx context.Context, id, groupID string, position int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[id]
	if !ok {
		return apperr.NotFound("move channel", "channel %s not found", id)
	}
	g := f.groupLocked(groupID)
	if g == nil {
		return apperr.NotFound("move channel", "group %s not found", groupID)
	}
	f.detachLocked(id)
	if len(g.MemberChannels) >= category.DefaultCapacity {
		return errors.New("Maximum number of channels in category reached (50)")
	}
	if position < 0 || position > len(g.MemberChannels) {
		position = len(g.MemberChannels)
	}
	members := append([]string{}, g.MemberChannels[:position]...)
	members = append(members, id)
	g.MemberChannels = append(members, g.MemberChannels[position:]...)
	c.GroupID = groupID
	return nil
}

func (f *fakePlatform) DeleteChannel(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detachLocked(id)
	delete(f.channels, id)
	f.deletedChannels = append(f.deletedChannels, id)
	return nil
}

func (f *fakePlatform) ListGroups(ctx context.Context) ([]secondary.GroupInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]secondary.GroupInfo, len(f.groups))
	for i, g := range f.groups {
		out[i] = *g
		out[i].MemberChannels = append([]string(nil), g.MemberChannels...)
	}
	return out, nil
}

func (f *fakePlatform) CloneGroup(ctx context.Context, req secondary.CloneGroupRequest) (*secondary.GroupInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cloneErr != nil {
		return nil, f.cloneErr
	}
	if f.groupLocked(req.FromID) == nil {
		return nil, fmt.Errorf("unknown group %s", req.FromID)
	}
	f.clones++
	for _, g := range f.groups {
		if g.Position >= req.Position {
			g.Position++
		}
	}
	g := &secondary.GroupInfo{ID: f.id("G"), Name: req.Name, Position: req.Position}
	f.groups = append(f.groups, g)
	sort.SliceStable(f.groups, func(i, j int) bool { return f.groups[i].Position < f.groups[j].Position })
	cp := *g
	return &cp, nil
}

func (f *fakePlatform) DeleteGroup(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, g := range f.groups {
		if g.ID == id {
			f.groups = append(f.groups[:i], f.groups[i+1:]...)
			f.deletedGroups = append(f.deletedGroups, g.Name)
			return nil
		}
	}
	return apperr.NotFound("delete group", "group %s not found", id)
}

func (f *fakePlatform) Send(ctx context.Context, msg secondary.OutboundMessage) (*secondary.MessageInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, msg)
	return &secondary.MessageInfo{ID: f.id("M"), ChannelID: msg.ChannelID, AuthorID: "bot", Content: msg.Content}, nil
}

func (f *fakePlatform) GetMessage(ctx context.Context, channelID, messageID string) (*secondary.MessageInfo, error) {
	return &secondary.MessageInfo{ID: messageID, ChannelID: channelID}, nil
}

func (f *fakePlatform) Pin(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pins = append(f.pins, messageID)
	return nil
}

func (f *fakePlatform) Unpin(ctx context.Context, channelID, messageID string) error { return nil }

func (f *fakePlatform) React(ctx context.Context, channelID, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reacts = append(f.reacts, messageID+":"+emoji)
	return nil
}

func (f *fakePlatform) ListLocations(ctx context.Context) ([]secondary.VoiceLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []secondary.VoiceLocation
	for _, v := range f.voice {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakePlatform) Location(ctx context.Context, channelID string) (*secondary.VoiceLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.voice[channelID]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (f *fakePlatform) LocationOf(ctx context.Context, userID string) (*secondary.VoiceLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.voice[f.members[userID]]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (f *fakePlatform) LastRename(ctx context.Context, channelID string, since time.Time) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.auditErr != nil {
		return time.Time{}, false, f.auditErr
	}
	at, ok := f.auditRenames[channelID]
	if !ok || !at.After(since) {
		return time.Time{}, false, nil
	}
	return at, true, nil
}

// ============================================================================
// Harness
// ============================================================================

const (
	testStatusChannel = "STATUS"
	activeRootID      = "root-active"
	solvedRootID      = "root-solved"
	testGrace         = 30 * time.Second
	testRenameWindow  = 10 * time.Minute
)

var testStart = time.Date(2026, time.January, 16, 12, 0, 0, 0, time.UTC)

type harness struct {
	puzzles    *mockPuzzleRepository
	rounds     *mockRoundRepository
	platform   *fakePlatform
	clock      *clock.FakeClock
	categories *CategoryServiceImpl
	executor   *DefaultEffectExecutor
	status     *StatusServiceImpl
	occupancy  *OccupancyServiceImpl
	debouncer  *Debouncer
	reports    *ReportServiceImpl
	roundSvc   *RoundServiceImpl
	cleanup    *CleanupServiceImpl
}

var privilegedRoles = []string{"Beta Boss", "Puzzleboss", "Puzztech"}

func newHarness(t *testing.T, limit int) *harness {
	t.Helper()
	logger := logging.Discard()
	h := &harness{
		puzzles:  newMockPuzzleRepository(),
		rounds:   &mockRoundRepository{},
		platform: newFakePlatform(),
		clock:    clock.Fake(testStart),
	}
	h.platform.addGroup(activeRootID, "Puzzles", 0)
	h.platform.addGroup(solvedRootID, "Solved", 100)

	var locks keylock.Map
	h.categories = NewCategoryService(h.platform, h.platform,
		category.Roots{ActiveID: activeRootID, ArchiveID: solvedRootID}, limit, logger)
	h.executor = NewEffectExecutor(h.puzzles, h.rounds, h.platform, h.platform, h.categories, logger)
	h.status = NewStatusService(h.puzzles, h.platform, h.platform, h.categories, h.executor, h.clock, &locks,
		StatusSettings{
			StatusChannelID: testStatusChannel,
			ActiveRootID:    activeRootID,
			RenameWindow:    testRenameWindow,
			PrivilegedRoles: privilegedRoles,
		},
		logger)
	h.debouncer = NewDebouncer(h.clock)
	h.occupancy = NewOccupancyService(h.puzzles, h.platform, h.executor, h.debouncer, &locks,
		OccupancySettings{TableMarker: "tables", GracePeriod: testGrace, ClearTimeout: time.Minute}, logger)
	h.reports = NewReportService(h.puzzles, h.rounds, h.platform, h.clock, "tables", time.UTC)
	h.roundSvc = NewRoundService(h.rounds, h.categories, h.executor, testStatusChannel, privilegedRoles, logger)
	h.cleanup = NewCleanupService(h.puzzles, h.platform, h.categories, []string{testStatusChannel}, privilegedRoles, logger)
	t.Cleanup(h.debouncer.Stop)
	return h
}

// seedPuzzle adds a puzzle record with a workspace channel in groupID.
func (h *harness) seedPuzzle(id, name, round, status, groupID string) *secondary.PuzzleRecord {
	r := &secondary.PuzzleRecord{ID: id, Name: name, RoundName: round, Status: status}
	if groupID != "" {
		r.ChannelID = "C-" + id
		h.platform.addChannel(r.ChannelID, name, groupID)
	}
	h.puzzles.add(r)
	return r
}

func privileged() context.Context {
	return ctxutil.WithActor(context.Background(), ctxutil.Actor{ID: "boss", Name: "boss", Roles: []string{"Puzzleboss"}})
}

func solver() context.Context {
	return ctxutil.WithActor(context.Background(), ctxutil.Actor{ID: "solver", Name: "solver"})
}
