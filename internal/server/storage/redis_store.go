package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key 前缀
	playerKeyPrefix = "player:"
	gameKeyPrefix   = "game:"
	leaderboardKey  = "leaderboard:wins"
)

// RedisStore Redis 存储：玩家账号、胜负统计与对局记录
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// --- 账号 ---

// PlayerStats 玩家胜负统计
type PlayerStats struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
}

// EnsureAccount 首次出现的用户名创建零胜负的新账号，否则执行凭证校验
// created 表示本次新建；ok 表示凭证通过（新建视为通过）
func (rs *RedisStore) EnsureAccount(ctx context.Context, username, password string) (created, ok bool, err error) {
	key := playerKeyPrefix + username

	stored, err := rs.client.HGet(ctx, key, "password").Result()
	if errors.Is(err, redis.Nil) {
		// 新账号：零胜负计数 + 排行榜零分
		fields := map[string]any{
			"password":   password,
			"wins":       0,
			"losses":     0,
			"created_at": time.Now().Unix(),
		}
		if err := rs.client.HSet(ctx, key, fields).Err(); err != nil {
			return false, false, err
		}
		if err := rs.client.ZAdd(ctx, leaderboardKey, redis.Z{Score: 0, Member: username}).Err(); err != nil {
			return false, false, err
		}
		return true, true, nil
	}
	if err != nil {
		return false, false, err
	}

	return false, stored == password, nil
}

// AccountExists 判断账号是否存在
func (rs *RedisStore) AccountExists(ctx context.Context, username string) (bool, error) {
	n, err := rs.client.Exists(ctx, playerKeyPrefix+username).Result()
	return n > 0, err
}

// RecordResult 为玩家累计一场胜利或失败
func (rs *RedisStore) RecordResult(ctx context.Context, username string, won bool) error {
	key := playerKeyPrefix + username

	field := "losses"
	if won {
		field = "wins"
	}
	if err := rs.client.HIncrBy(ctx, key, field, 1).Err(); err != nil {
		return err
	}
	if won {
		return rs.client.ZIncrBy(ctx, leaderboardKey, 1, username).Err()
	}
	return nil
}

// GetStats 获取玩家统计，账号不存在返回 nil
func (rs *RedisStore) GetStats(ctx context.Context, username string) (*PlayerStats, error) {
	data, err := rs.client.HGetAll(ctx, playerKeyPrefix+username).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	stats := &PlayerStats{Username: username}
	fmt.Sscanf(data["wins"], "%d", &stats.Wins)
	fmt.Sscanf(data["losses"], "%d", &stats.Losses)
	return stats, nil
}

// TopPlayers 按胜场数返回前 n 名玩家
func (rs *RedisStore) TopPlayers(ctx context.Context, n int) ([]PlayerStats, error) {
	usernames, err := rs.client.ZRevRange(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	tops := make([]PlayerStats, 0, len(usernames))
	for _, username := range usernames {
		stats, err := rs.GetStats(ctx, username)
		if err != nil {
			return nil, err
		}
		if stats != nil {
			tops = append(tops, *stats)
		}
	}
	return tops, nil
}

// --- 对局记录 ---

// GameRecord 一局的存档：参与者、胜者或平局标记、起止时间
type GameRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Players   []string `json:"players"`
	Winner    string   `json:"winner,omitempty"`
	Tie       bool     `json:"tie,omitempty"`
	StartedAt int64    `json:"started_at"`
	EndedAt   int64    `json:"ended_at"`
}

// SaveGameRecord 保存对局记录
func (rs *RedisStore) SaveGameRecord(ctx context.Context, rec *GameRecord) error {
	if rec == nil {
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("序列化对局记录失败: %w", err)
	}
	return rs.client.Set(ctx, gameKeyPrefix+rec.ID, data, 0).Err()
}

// LoadGameRecord 加载对局记录，不存在返回 nil
func (rs *RedisStore) LoadGameRecord(ctx context.Context, id string) (*GameRecord, error) {
	data, err := rs.client.Get(ctx, gameKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var rec GameRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("反序列化对局记录失败: %w", err)
	}
	return &rec, nil
}
