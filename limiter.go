/*
File: limiter.go
Version: 2.0.0
Description: Admission control for the prediction service: an optional client CIDR
             allowlist, proportional delay / load shedding on goroutine count, and
             per-client token buckets with pacing. Client state lives in a sharded map.
*/

package main

import (
	"context"
	"fmt"
	"hash/maphash"
	"net"
	"net/netip"
	"runtime"
	"sync"
	"time"

	"github.com/yl2chen/cidranger"
	"golang.org/x/time/rate"
)

// Actions returned by the limiter
type LimitAction int

const (
	ActionAllow LimitAction = iota
	ActionDelay
	ActionDrop
	ActionDeny
)

func (a LimitAction) String() string {
	switch a {
	case ActionAllow:
		return "ALLOW"
	case ActionDelay:
		return "DELAY"
	case ActionDrop:
		return "DROP"
	case ActionDeny:
		return "DENY"
	default:
		return "UNKNOWN"
	}
}

const (
	limitShardCount = 256
	// Requests needing a longer pacing delay than this are dropped.
	maxPacingDelay = 1 * time.Second
)

// ClientState holds the rate limiter for a specific client
type ClientState struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterShard struct {
	sync.Mutex
	clients map[string]*ClientState
}

type Limiter struct {
	shards  [limitShardCount]*limiterShard
	config  RateLimitConfig
	enabled bool
	seed    maphash.Seed

	// allow is nil when every client is admitted.
	allow cidranger.Ranger
}

// NewLimiter builds a limiter from the rate limit settings and a list of allowed
// client networks. Bare addresses are accepted as single-host networks.
func NewLimiter(cfg RateLimitConfig, allowed []string) (*Limiter, error) {
	lm := &Limiter{
		config:  cfg,
		enabled: cfg.Enabled,
		seed:    maphash.MakeSeed(),
	}
	for i := 0; i < limitShardCount; i++ {
		lm.shards[i] = &limiterShard{
			clients: make(map[string]*ClientState),
		}
	}

	if len(allowed) > 0 {
		lm.allow = cidranger.NewPCTrieRanger()
		for _, entry := range allowed {
			prefix, err := parsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("allowed_clients: %w", err)
			}
			// cidranger works on net.IPNet
			addr := prefix.Addr()
			ipNet := net.IPNet{
				IP:   net.IP(addr.AsSlice()),
				Mask: net.CIDRMask(prefix.Bits(), addr.BitLen()),
			}
			if err := lm.allow.Insert(cidranger.NewBasicRangerEntry(ipNet)); err != nil {
				return nil, fmt.Errorf("allowed_clients %q: %w", entry, err)
			}
		}
		LogInfo("[LIMITER] Client allowlist active with %d networks", len(allowed))
	}
	return lm, nil
}

func parsePrefix(s string) (netip.Prefix, error) {
	if p, err := netip.ParsePrefix(s); err == nil {
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid network %q", s)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Allowed reports whether ip passes the client allowlist.
func (lm *Limiter) Allowed(ip net.IP) bool {
	if lm.allow == nil {
		return true
	}
	if ip == nil {
		return false
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	ok, err := lm.allow.Contains(ip)
	return err == nil && ok
}

// IsUnderLoad reports whether the goroutine count is above 80% of the soft limit.
func (lm *Limiter) IsUnderLoad() bool {
	if !lm.enabled {
		return false
	}
	threshold := int(float64(lm.config.MaxGoroutines) * 0.8)
	if threshold < 10 {
		threshold = 10
	}
	return runtime.NumGoroutine() > threshold
}

// StartCleanupRoutine removes idle client limiters until ctx is done.
func (lm *Limiter) StartCleanupRoutine(ctx context.Context) {
	if !lm.enabled {
		return
	}

	interval := lm.config.parsedCleanupInterval
	if interval == 0 {
		interval = 1 * time.Minute
	}

	LogInfo("[LIMITER] Starting cleanup routine (Interval: %v)", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			LogInfo("[LIMITER] Stopping cleanup routine")
			return
		case <-ticker.C:
			lm.cleanup(time.Now())
		}
	}
}

func (lm *Limiter) cleanup(now time.Time) int {
	expiration := lm.config.parsedClientExpiration
	if expiration == 0 {
		expiration = 5 * time.Minute
	}
	removedCount := 0

	for _, shard := range lm.shards {
		shard.Lock()
		for ip, state := range shard.clients {
			if now.Sub(state.lastSeen) > expiration {
				delete(shard.clients, ip)
				removedCount++
			}
		}
		shard.Unlock()
	}

	if removedCount > 0 {
		LogDebug("[LIMITER] Cleaned up %d idle client limiters", removedCount)
	}
	return removedCount
}

func (lm *Limiter) getShard(key string) *limiterShard {
	return lm.shards[maphash.String(lm.seed, key)&(limitShardCount-1)]
}

// Check evaluates a request from clientIP against the allowlist, system load and
// the client's token bucket. It returns the action, the delay to apply for
// ActionDelay and a reason for logging.
func (lm *Limiter) Check(clientIP net.IP) (LimitAction, time.Duration, string) {
	if !lm.Allowed(clientIP) {
		return ActionDeny, 0, fmt.Sprintf("Client %v not in allowlist", clientIP)
	}
	if !lm.enabled {
		return ActionAllow, 0, ""
	}

	// System health
	numGoroutines := runtime.NumGoroutine()

	if numGoroutines >= lm.config.HardMaxGoroutines {
		reason := fmt.Sprintf("System Overload (Hard Limit: %d/%d Goroutines)", numGoroutines, lm.config.HardMaxGoroutines)
		return ActionDrop, 0, reason
	}

	// Soft limit: delay grows linearly from BaseDelay to MaxDelay between the limits.
	if numGoroutines > lm.config.MaxGoroutines {
		spread := float64(lm.config.HardMaxGoroutines - lm.config.MaxGoroutines)
		overage := float64(numGoroutines - lm.config.MaxGoroutines)
		ratio := 1.0
		if spread > 0 {
			ratio = min(overage/spread, 1.0)
		}

		base := float64(lm.config.parsedBaseDelay.Nanoseconds())
		maxDelay := float64(lm.config.parsedMaxDelay.Nanoseconds())
		delay := time.Duration(base + (maxDelay-base)*ratio)

		reason := fmt.Sprintf("System Load (Soft Limit: %d/%d Goroutines, Ratio: %.2f)", numGoroutines, lm.config.MaxGoroutines, ratio)
		return ActionDelay, delay, reason
	}

	// Per-client QPS with pacing
	if clientIP == nil {
		return ActionAllow, 0, ""
	}

	ipStr := clientIP.String()
	shard := lm.getShard(ipStr)

	shard.Lock()
	state, exists := shard.clients[ipStr]
	if !exists {
		state = &ClientState{
			limiter: rate.NewLimiter(rate.Limit(lm.config.ClientQPS), lm.config.ClientBurst),
		}
		shard.clients[ipStr] = state
	}
	state.lastSeen = time.Now()
	reservation := state.limiter.Reserve()
	shard.Unlock()

	if !reservation.OK() {
		return ActionDrop, 0, "Client Rate Limit Exceeded (burst is zero)"
	}

	delay := reservation.Delay()
	if delay == 0 {
		return ActionAllow, 0, ""
	}

	// Small overruns are paced rather than dropped.
	if delay <= maxPacingDelay {
		reason := fmt.Sprintf("Client QPS Pacing (IP: %s, Delay: %v)", ipStr, delay)
		return ActionDelay, delay, reason
	}

	reservation.Cancel()

	var tokens float64
	if IsDebugEnabled() {
		tokens = state.limiter.Tokens()
	}

	reason := fmt.Sprintf("Client QPS Exceeded (IP: %s, Required Delay: %v > Limit: %v, Tokens: %.2f)",
		ipStr, delay, maxPacingDelay, tokens)
	return ActionDrop, 0, reason
}
