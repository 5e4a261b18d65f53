// Package ordernum generates human-readable order numbers. Uniqueness is enforced by the
// store; generators only need to make collisions rare.
package ordernum

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Generator produces the next order number.
type Generator interface {
	Next(ctx context.Context) (string, error)
}

// Timestamp builds ORD-<unix millis>-<4 random digits>.
type Timestamp struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func NewTimestamp() *Timestamp {
	return &Timestamp{rnd: rand.New(rand.NewSource(time.Now().UnixNano())), now: time.Now}
}

func (g *Timestamp) Next(context.Context) (string, error) {
	g.mu.Lock()
	n := g.rnd.Intn(10000)
	g.mu.Unlock()
	return fmt.Sprintf("ORD-%d-%04d", g.now().UnixMilli(), n), nil
}

// RedisSequence builds ORD-YYYYMMDD-NNNN from a per-day counter in Redis. Counters expire
// two days after first use.
type RedisSequence struct {
	Client *redis.Client
	Prefix string
	Loc    *time.Location
	now    func() time.Time
}

func NewRedisSequence(client *redis.Client, loc *time.Location) *RedisSequence {
	if loc == nil {
		loc = time.UTC
	}
	return &RedisSequence{Client: client, Prefix: "canteen:ordernum", Loc: loc, now: time.Now}
}

// Key is the counter key for the day containing t.
func (g *RedisSequence) Key(t time.Time) string {
	return g.Prefix + ":" + t.In(g.Loc).Format("20060102")
}

func (g *RedisSequence) Next(ctx context.Context) (string, error) {
	now := g.now()
	key := g.Key(now)
	pipe := g.Client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("order sequence: %w", err)
	}
	return fmt.Sprintf("ORD-%s-%04d", now.In(g.Loc).Format("20060102"), incr.Val()), nil
}

var (
	_ Generator = (*Timestamp)(nil)
	_ Generator = (*RedisSequence)(nil)
)
