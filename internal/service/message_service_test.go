package service

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/twitterlite/internal/model"
)

func TestMessageTextLength(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustCreateUser(t, "alice")

	_, err := env.msgs.Create(ctx, alice.ID, "")
	assert.ErrorIs(t, err, ErrTextLength)

	_, err = env.msgs.Create(ctx, alice.ID, strings.Repeat("x", 141))
	assert.ErrorIs(t, err, ErrTextLength)

	m, err := env.msgs.Create(ctx, alice.ID, strings.Repeat("x", 140))
	require.NoError(t, err)
	assert.Len(t, m.Text, 140)
}

// 长度按字符数计，多字节文本不能按字节误判
func TestMessageTextLengthCountsRunes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustCreateUser(t, "alice")

	m, err := env.msgs.Create(ctx, alice.ID, strings.Repeat("微", 140))
	require.NoError(t, err)
	assert.Equal(t, 140, utf8.RuneCountInString(m.Text))

	_, err = env.msgs.Create(ctx, alice.ID, strings.Repeat("微", 141))
	assert.ErrorIs(t, err, ErrTextLength)
}

func TestMessageCreateUnknownSender(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.msgs.Create(context.Background(), "no-such-user", "hi")
	assert.ErrorIs(t, err, ErrNotFound)
}

// 作者自己的时间线立即可见（种子接收记录在创建事务里落地）
func TestSenderTimelineReadAfterWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustCreateUser(t, "alice")

	_, err := env.msgs.Create(ctx, alice.ID, "hello")
	require.NoError(t, err)

	// 不 Drain：扩散任务还没跑
	timeline, _, err := env.msgs.ListUserTimeline(ctx, alice.ID, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, texts(timeline))
}

// 关注晚于发帖：关注变更扩散把历史消息补进粉丝时间线，取关再清掉
func TestFollowBackfillsAndUnfollowRemoves(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustCreateUser(t, "alice")
	bob := env.mustCreateUser(t, "bob")

	_, err := env.msgs.Create(ctx, alice.ID, "hello")
	require.NoError(t, err)
	env.drain(t)

	timeline, _, err := env.msgs.ListUserTimeline(ctx, bob.ID, "", 10)
	require.NoError(t, err)
	assert.Empty(t, timeline)

	require.NoError(t, env.users.Follow(ctx, bob.ID, alice.ID))
	env.drain(t)

	timeline, _, err = env.msgs.ListUserTimeline(ctx, bob.ID, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, texts(timeline))

	require.NoError(t, env.users.Unfollow(ctx, bob.ID, alice.ID))
	env.drain(t)

	timeline, _, err = env.msgs.ListUserTimeline(ctx, bob.ID, "", 10)
	require.NoError(t, err)
	assert.Empty(t, timeline)

	// 作者自己的时间线不受取关影响
	timeline, _, err = env.msgs.ListUserTimeline(ctx, alice.ID, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, texts(timeline))
}

// 关注早于发帖：新消息扩散把消息推进粉丝时间线，新的在前
func TestNewMessageFanOutToFollowers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustCreateUser(t, "alice")
	bob := env.mustCreateUser(t, "bob")

	require.NoError(t, env.users.Follow(ctx, bob.ID, alice.ID))
	env.drain(t)

	_, err := env.msgs.Create(ctx, alice.ID, "first")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = env.msgs.Create(ctx, alice.ID, "second")
	require.NoError(t, err)
	env.drain(t)

	timeline, _, err := env.msgs.ListUserTimeline(ctx, bob.ID, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, texts(timeline))
}

// 粉丝多于一页时扩散任务自续传，所有粉丝都收到
func TestNewMessageFanOutPaginates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustCreateUser(t, "alice")

	const fans = 60 // defaultJobPageSize 的两页多
	followers := make([]*model.User, fans)
	for i := 0; i < fans; i++ {
		followers[i] = env.mustCreateUser(t, "fan"+string(rune('a'+i/26))+string(rune('a'+i%26)))
		require.NoError(t, env.users.Follow(ctx, followers[i].ID, alice.ID))
	}
	env.drain(t)

	msg, err := env.msgs.Create(ctx, alice.ID, "broadcast")
	require.NoError(t, err)
	env.drain(t)

	// 粉丝 + 作者种子
	var cnt int64
	require.NoError(t, env.db.Model(&model.Receiver{}).
		Where("message_id = ?", msg.ID).Count(&cnt).Error)
	assert.EqualValues(t, fans+1, cnt)

	timeline, _, err := env.msgs.ListUserTimeline(ctx, followers[fans-1].ID, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"broadcast"}, texts(timeline))
}

func TestListAllPaginationCompleteness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustCreateUser(t, "alice")

	const total = 8
	for i := 0; i < total; i++ {
		_, err := env.msgs.Create(ctx, alice.ID, strings.Repeat("m", i+1))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	seen := make(map[string]bool)
	token := ""
	for pages := 0; pages < total+1; pages++ {
		msgs, next, err := env.msgs.ListAll(ctx, token, 3)
		require.NoError(t, err)
		if len(msgs) == 0 {
			break
		}
		for _, m := range msgs {
			assert.False(t, seen[m.ID], "message %s returned twice", m.ID)
			seen[m.ID] = true
		}
		token = next
	}
	assert.Len(t, seen, total)
}

// 时间线游标续传：接收者索引侧的翻页也要不重不漏
func TestTimelinePaginationCompleteness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustCreateUser(t, "alice")
	bob := env.mustCreateUser(t, "bob")
	require.NoError(t, env.users.Follow(ctx, bob.ID, alice.ID))
	env.drain(t)

	const total = 8
	for i := 0; i < total; i++ {
		_, err := env.msgs.Create(ctx, alice.ID, strings.Repeat("t", i+1))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	env.drain(t)

	seen := make(map[string]bool)
	token := ""
	for pages := 0; pages < total+1; pages++ {
		msgs, next, err := env.msgs.ListUserTimeline(ctx, bob.ID, token, 3)
		require.NoError(t, err)
		if len(msgs) == 0 {
			break
		}
		for _, m := range msgs {
			assert.False(t, seen[m.ID], "message %s returned twice", m.ID)
			seen[m.ID] = true
		}
		token = next
	}
	assert.Len(t, seen, total)
}

// 无效游标当作从头开始
func TestListAllGarbageCursor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustCreateUser(t, "alice")
	_, err := env.msgs.Create(ctx, alice.ID, "hello")
	require.NoError(t, err)

	msgs, _, err := env.msgs.ListAll(ctx, "!!!not-base64!!!", 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestMessageUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustCreateUser(t, "alice")

	m, err := env.msgs.Create(ctx, alice.ID, "draft")
	require.NoError(t, err)

	upd, err := env.msgs.Update(ctx, m.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", upd.Text)
	assert.Equal(t, alice.ID, upd.SenderID)

	_, err = env.msgs.Update(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, env.msgs.Delete(ctx, m.ID))
	_, err = env.msgs.Get(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// 接收者索引随消息删除，时间线不留空洞
	timeline, _, err := env.msgs.ListUserTimeline(ctx, alice.ID, "", 10)
	require.NoError(t, err)
	assert.Empty(t, timeline)
}

func TestIsSender(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.mustCreateUser(t, "alice")
	bob := env.mustCreateUser(t, "bob")

	m, err := env.msgs.Create(ctx, alice.ID, "mine")
	require.NoError(t, err)

	ok, err := env.msgs.IsSender(ctx, m.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.msgs.IsSender(ctx, m.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
