package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlpAus/guild-activity-tracker/internal/activity"
	"github.com/SlpAus/guild-activity-tracker/internal/birthday"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/config"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/database"
	"github.com/SlpAus/guild-activity-tracker/internal/transport"
)

// fakeRoster 是一个内存成员名册。
type fakeRoster struct {
	members map[string]*transport.Member
	added   []string
	removed []string
}

func (f *fakeRoster) Member(ctx context.Context, memberID string) (*transport.Member, error) {
	m, ok := f.members[memberID]
	if !ok {
		return nil, transport.ErrNotFound
	}
	return m, nil
}

func (f *fakeRoster) Members(ctx context.Context) ([]transport.Member, error) {
	var out []transport.Member
	for _, m := range f.members {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeRoster) AddRole(ctx context.Context, memberID, roleID string) error {
	m, ok := f.members[memberID]
	if !ok {
		return transport.ErrNotFound
	}
	m.Roles = append(m.Roles, roleID)
	f.added = append(f.added, memberID)
	return nil
}

func (f *fakeRoster) RemoveRole(ctx context.Context, memberID, roleID string) error {
	m, ok := f.members[memberID]
	if !ok {
		return transport.ErrNotFound
	}
	for i, r := range m.Roles {
		if r == roleID {
			m.Roles = append(m.Roles[:i], m.Roles[i+1:]...)
			break
		}
	}
	f.removed = append(f.removed, memberID)
	return nil
}

func (f *fakeRoster) RoleHolders(ctx context.Context, roleID string) ([]string, error) {
	var out []string
	for id, m := range f.members {
		if m.HasRole(roleID) {
			out = append(out, id)
		}
	}
	return out, nil
}

// fakeMessenger 记录所有发出的消息与文件。
type fakeMessenger struct {
	sent  []string
	files []string
}

func (f *fakeMessenger) Send(ctx context.Context, channelID, content string) (string, error) {
	f.sent = append(f.sent, content)
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

func (f *fakeMessenger) Recent(ctx context.Context, channelID string, limit int) ([]transport.Message, error) {
	return nil, nil
}

func (f *fakeMessenger) Edit(ctx context.Context, channelID, messageID, content string) error {
	return nil
}

func (f *fakeMessenger) Delete(ctx context.Context, channelID, messageID string) error {
	return nil
}

func (f *fakeMessenger) SendFile(ctx context.Context, channelID, content, filePath string) error {
	f.files = append(f.files, filePath)
	return nil
}

func newJobsFixture(t *testing.T, roster *fakeRoster, messenger *fakeMessenger, cfg *config.Config) (*Jobs, *activity.Service, *birthday.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := database.OpenSQLite(dsn)
	require.NoError(t, err)
	db := &database.DB{Gorm: gdb, Path: dsn}

	act := activity.NewService(db, 0)
	require.NoError(t, act.PrimeModule(context.Background()))
	bd := birthday.NewService(db, act)
	require.NoError(t, bd.PrimeModule(act.Repository()))

	jobs := NewJobs(db, act, bd, roster, messenger, cfg)
	jobs.pace = 0
	return jobs, act, bd
}

// midOfPreviousMonth 返回上个自然月15日正午的毫秒时间戳。
func midOfPreviousMonth() int64 {
	now := time.Now().UTC()
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := firstOfCurrent.AddDate(0, -1, 0)
	return time.Date(prev.Year(), prev.Month(), 15, 12, 0, 0, 0, time.UTC).UnixMilli()
}

func baseConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Tracking.InactivityDays = 90
	cfg.Tracking.RetentionDays = 365
	cfg.Guild.Roles.Inactive = "role-inactive"
	cfg.Guild.Roles.MemberOfMonth = "role-motm"
	cfg.Guild.Channels.Announcement = "chan-announce"
	cfg.Jobs.Timezone = "UTC"
	return cfg
}

func TestInactivitySweepSkipsDepartedAndMarked(t *testing.T) {
	roster := &fakeRoster{members: map[string]*transport.Member{
		"user-marked": {ID: "user-marked", Roles: []string{"role-inactive"}},
		"user-new":    {ID: "user-new"},
	}}
	messenger := &fakeMessenger{}
	jobs, act, _ := newJobsFixture(t, roster, messenger, baseConfig())
	ctx := context.Background()

	oldTs := time.Now().AddDate(0, 0, -120).UnixMilli()
	for _, id := range []string{"user-departed", "user-marked", "user-new"} {
		_, err := act.Repository().RecordEvent(ctx, id, id, activity.KindMessage, oldTs)
		require.NoError(t, err)
	}

	jobs.runInactivitySweep(ctx)

	assert.Equal(t, []string{"user-new"}, roster.added,
		"只有在册且未标记的成员会被打上不活跃角色")
}

func TestInactivitySweepAbortsWithoutRoleID(t *testing.T) {
	roster := &fakeRoster{members: map[string]*transport.Member{
		"user-a": {ID: "user-a"},
	}}
	cfg := baseConfig()
	cfg.Guild.Roles.Inactive = ""
	jobs, act, _ := newJobsFixture(t, roster, &fakeMessenger{}, cfg)
	ctx := context.Background()

	_, err := act.Repository().RecordEvent(ctx, "user-a", "A", activity.KindMessage,
		time.Now().AddDate(0, 0, -120).UnixMilli())
	require.NoError(t, err)

	jobs.runInactivitySweep(ctx)
	assert.Empty(t, roster.added, "缺少必需配置时本次运行应中止")
}

func TestMonthlyRolloverTransfersRole(t *testing.T) {
	roster := &fakeRoster{members: map[string]*transport.Member{
		"user-old-star": {ID: "user-old-star", Roles: []string{"role-motm"}},
		"user-winner":   {ID: "user-winner"},
	}}
	messenger := &fakeMessenger{}
	jobs, act, _ := newJobsFixture(t, roster, messenger, baseConfig())
	ctx := context.Background()

	// 上个自然月中段的事件
	mid := midOfPreviousMonth()
	for i := 0; i < 3; i++ {
		_, err := act.Repository().RecordEvent(ctx, "user-winner", "Winner", activity.KindMessage, mid+int64(i))
		require.NoError(t, err)
	}

	jobs.runMonthlyRollover(ctx)

	assert.Equal(t, []string{"user-old-star"}, roster.removed, "旧持有者应被摘除")
	assert.Equal(t, []string{"user-winner"}, roster.added, "冠军应被授予角色")
	require.Len(t, messenger.sent, 1)
	assert.Contains(t, messenger.sent[0], "Winner")
}

func TestMonthlyRolloverNoActivity(t *testing.T) {
	roster := &fakeRoster{members: map[string]*transport.Member{
		"user-old-star": {ID: "user-old-star", Roles: []string{"role-motm"}},
	}}
	messenger := &fakeMessenger{}
	jobs, _, _ := newJobsFixture(t, roster, messenger, baseConfig())

	jobs.runMonthlyRollover(context.Background())

	assert.Empty(t, roster.removed, "没有冠军时不应摘除任何人")
	assert.Empty(t, messenger.sent)
}

func TestMonthlyRolloverWinnerDeparted(t *testing.T) {
	roster := &fakeRoster{members: map[string]*transport.Member{
		"user-old-star": {ID: "user-old-star", Roles: []string{"role-motm"}},
	}}
	messenger := &fakeMessenger{}
	jobs, act, _ := newJobsFixture(t, roster, messenger, baseConfig())
	ctx := context.Background()

	_, err := act.Repository().RecordEvent(ctx, "user-gone", "Gone", activity.KindMessage, midOfPreviousMonth())
	require.NoError(t, err)

	jobs.runMonthlyRollover(ctx)

	assert.Equal(t, []string{"user-old-star"}, roster.removed)
	assert.Empty(t, roster.added)
	assert.Empty(t, messenger.sent, "冠军已离开时不应发送公告")
}

func TestWeeklyMaintenanceBackup(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data.db")
	gdb, err := database.OpenSQLite(dbPath)
	require.NoError(t, err)
	db := &database.DB{Gorm: gdb, Path: dbPath}

	act := activity.NewService(db, 0)
	require.NoError(t, act.PrimeModule(context.Background()))
	bd := birthday.NewService(db, act)
	require.NoError(t, bd.PrimeModule(act.Repository()))

	cfg := baseConfig()
	cfg.Guild.Channels.Backups = "chan-backups"
	cfg.Jobs.Backup.Dir = filepath.Join(dir, "backups")
	cfg.Jobs.Backup.Keep = 5

	messenger := &fakeMessenger{}
	jobs := NewJobs(db, act, bd, &fakeRoster{members: map[string]*transport.Member{}}, messenger, cfg)
	jobs.pace = 0

	jobs.runWeeklyMaintenance(context.Background())

	require.Len(t, messenger.files, 1, "备份文件应被上传")
	assert.FileExists(t, messenger.files[0])
}

func TestBirthdayDigest(t *testing.T) {
	roster := &fakeRoster{members: map[string]*transport.Member{}}
	messenger := &fakeMessenger{}
	jobs, _, bd := newJobsFixture(t, roster, messenger, baseConfig())
	ctx := context.Background()

	// 没有寿星时保持沉默
	jobs.runBirthdayDigest(ctx)
	assert.Empty(t, messenger.sent)

	now := time.Now().In(jobs.loc)
	require.NoError(t, bd.SetBirthday(ctx, "user-a", "Alice", now.Day(), int(now.Month())))
	require.NoError(t, bd.SetBirthday(ctx, "user-b", "Bob", now.Day(), int(now.Month())))

	jobs.runBirthdayDigest(ctx)
	require.Len(t, messenger.sent, 1, "所有寿星合并进一条公告")
	assert.Contains(t, messenger.sent[0], "Alice")
	assert.Contains(t, messenger.sent[0], "Bob")
}
