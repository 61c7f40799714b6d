// Package imposter 从参与者中均匀随机地选出内鬼。
//
// 把 n 个座位中选 k 个的所有组合按字典序编号为 [0, C(n,k))，
// 随机抽一个编号再解码成组合，不需要枚举全部组合。
package imposter

import (
	"fmt"
	"math/big"
	"math/rand/v2"

	"github.com/palemoky/imposter/internal/apperrors"
)

// runtimeSource 使用运行时全局随机源，可并发调用
type runtimeSource struct{}

func (runtimeSource) Uint64() uint64 { return rand.Uint64() }

var defaultRand = rand.New(runtimeSource{})

// CheckRoster 校验人数：船员必须多于内鬼的两倍
func CheckRoster(participants, imposterCount int) error {
	switch {
	case imposterCount < 1:
		return apperrors.Detail(apperrors.ErrInvalidRoster, "内鬼数量至少为 1")
	case imposterCount >= participants:
		return apperrors.Detail(apperrors.ErrInvalidRoster, "内鬼数量 %d 不能多于参与人数 %d", imposterCount, participants)
	case participants <= imposterCount*2:
		return apperrors.Detail(apperrors.ErrInvalidRoster, "参与人数 %d 需多于内鬼数量的两倍 (%d)", participants, imposterCount*2)
	}
	return nil
}

// Assign 从 ids 中选出 k 个内鬼，结果保持 ids 中的先后顺序。
// rng 为 nil 时使用全局随机源。
func Assign(ids []string, k int, rng *rand.Rand) ([]string, error) {
	if err := CheckRoster(len(ids), k); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = defaultRand
	}

	rank := randBelow(rng, Binomial(len(ids), k))
	positions, err := Unrank(len(ids), k, rank)
	if err != nil {
		return nil, err
	}

	chosen := make([]string, len(positions))
	for i, pos := range positions {
		chosen[i] = ids[pos]
	}
	return chosen, nil
}

// Binomial 返回 C(n, k)，k 越界时为 0
func Binomial(n, k int) *big.Int {
	if k < 0 || n < 0 || k > n {
		return big.NewInt(0)
	}
	return new(big.Int).Binomial(int64(n), int64(k))
}

// Unrank 将字典序编号解码为 k 个递增的座位号
func Unrank(n, k int, rank *big.Int) ([]int, error) {
	total := Binomial(n, k)
	if rank.Sign() < 0 || rank.Cmp(total) >= 0 {
		return nil, fmt.Errorf("rank %s out of range [0, %s)", rank, total)
	}

	r := new(big.Int).Set(rank)
	positions := make([]int, 0, k)
	next := 0
	for slot := range k {
		for pos := next; pos < n; pos++ {
			// 以 pos 作为第 slot 个元素的组合数
			block := Binomial(n-pos-1, k-slot-1)
			if r.Cmp(block) < 0 {
				positions = append(positions, pos)
				next = pos + 1
				break
			}
			r.Sub(r, block)
		}
	}
	return positions, nil
}

// randBelow 返回 [0, limit) 内均匀分布的整数，limit 必须为正
func randBelow(rng *rand.Rand, limit *big.Int) *big.Int {
	if limit.IsUint64() {
		return new(big.Int).SetUint64(rng.Uint64N(limit.Uint64()))
	}

	// 超过 64 位时按位拼接后拒绝采样
	bits := limit.BitLen()
	words := (bits + 63) / 64
	buf := make([]byte, words*8)
	for {
		for i := range words {
			v := rng.Uint64()
			for j := range 8 {
				buf[i*8+j] = byte(v >> (8 * j))
			}
		}
		n := new(big.Int).SetBytes(buf)
		n.Rsh(n, uint(words*64-bits))
		if n.Cmp(limit) < 0 {
			return n
		}
	}
}
