// Package primes implements probabilistic primality testing and random prime
// generation for RSA keys.
//
// A candidate is first screened by trial division against the primes up to
// 383, which rejects most composites without any modular exponentiation.
// Survivors go through k rounds of Miller-Rabin with witnesses drawn from a
// CSPRNG. The answer is "probably prime": a composite passes all k rounds with
// probability at most 4^-k.
package primes

import (
	"fmt"
	"math/big"

	rsatext "github.com/BanPerm/RSA-test-implementation"
	"github.com/BanPerm/RSA-test-implementation/modmath"
	"github.com/BanPerm/RSA-test-implementation/utils"
)

const (
	// DefaultRounds is the default number of Miller-Rabin witnesses.
	DefaultRounds = 20

	// TrialDivisionLimit is the largest prime in the trial-division table.
	TrialDivisionLimit = 383
)

// SmallPrimes holds every prime up to TrialDivisionLimit in increasing order.
var SmallPrimes = Sieve(TrialDivisionLimit)

var (
	bigOne   = big.NewInt(1)
	bigTwo   = big.NewInt(2)
	bigThree = big.NewInt(3)

	smallPrimesBig = toBig(SmallPrimes)
)

// Sieve returns the primes in [2, limit] using the sieve of Eratosthenes.
func Sieve(limit int) []int {
	if limit < 2 {
		return nil
	}
	composite := make([]bool, limit+1)
	for p := 2; p*p <= limit; p++ {
		if composite[p] {
			continue
		}
		for i := p * p; i <= limit; i += p {
			composite[i] = true
		}
	}
	var out []int
	for i := 2; i <= limit; i++ {
		if !composite[i] {
			out = append(out, i)
		}
	}
	return out
}

func toBig(values []int) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = big.NewInt(int64(v))
	}
	return out
}

// Verdict is the outcome of trial division.
type Verdict int

const (
	// Composite means a table prime divides n, or n < 2.
	Composite Verdict = iota
	// Prime means n is proven prime: it is a table prime or has no factor
	// up to its square root.
	Prime
	// Undecided means n survived the screen and needs Miller-Rabin.
	Undecided
)

// TrialDivision screens n against SmallPrimes.
func TrialDivision(n *big.Int) Verdict {
	if n.Cmp(bigTwo) < 0 {
		return Composite
	}
	rem := new(big.Int)
	sq := new(big.Int)
	for _, p := range smallPrimesBig {
		if n.Cmp(p) == 0 {
			return Prime
		}
		if sq.Mul(p, p).Cmp(n) > 0 {
			return Prime
		}
		if rem.Mod(n, p).Sign() == 0 {
			return Composite
		}
	}
	return Undecided
}

// IsMillerRabinPassed runs the Miller-Rabin test with the given number of
// rounds. n < 2 is not prime, 2 and 3 are prime, other even numbers are not.
// An error is returned only when the random source fails or rounds < 1.
func IsMillerRabinPassed(n *big.Int, rounds int) (bool, error) {
	if err := utils.CheckPositive(rounds, "rounds"); err != nil {
		return false, err
	}
	if n.Cmp(bigTwo) < 0 {
		return false, nil
	}
	if n.Cmp(bigTwo) == 0 || n.Cmp(bigThree) == 0 {
		return true, nil
	}
	if n.Bit(0) == 0 {
		return false, nil
	}

	// n - 1 = 2^r * s with s odd
	nMinus1 := new(big.Int).Sub(n, bigOne)
	r := nMinus1.TrailingZeroBits()
	s := new(big.Int).Rsh(nMinus1, r)

	nMinus2 := new(big.Int).Sub(n, bigTwo)
	for round := 0; round < rounds; round++ {
		a, err := utils.RandomBigIntRange(bigTwo, nMinus2)
		if err != nil {
			return false, fmt.Errorf("drawing witness: %w", err)
		}
		x, err := modmath.ModPow(a, s, n)
		if err != nil {
			return false, err
		}
		if x.Cmp(bigOne) == 0 || x.Cmp(nMinus1) == 0 {
			continue
		}

		witnessed := true
		for i := uint(1); i < r; i++ {
			x.Mul(x, x)
			x.Mod(x, n)
			if x.Cmp(nMinus1) == 0 {
				witnessed = false
				break
			}
		}
		if witnessed {
			return false, nil
		}
	}
	return true, nil
}

// IsProbablePrime runs trial division and then, if needed, Miller-Rabin.
func IsProbablePrime(n *big.Int, rounds int) (bool, error) {
	switch TrialDivision(n) {
	case Composite:
		return false, nil
	case Prime:
		return true, nil
	}
	return IsMillerRabinPassed(n, rounds)
}

// TrialDivisionCandidate draws odd bits-sized integers until one survives
// trial division. The result is not necessarily prime.
func TrialDivisionCandidate(bits int) (*big.Int, error) {
	for {
		candidate, err := utils.RandomOddBits(bits)
		if err != nil {
			return nil, err
		}
		if TrialDivision(candidate) != Composite {
			return candidate, nil
		}
	}
}

// GeneratePrime returns a random probable prime of exactly bits bits,
// tested with DefaultRounds Miller-Rabin rounds.
// There is no limit on the number of candidates drawn; by the prime number
// theorem about bits*ln(2)/2 odd candidates are needed on average.
func GeneratePrime(bits int) (*big.Int, error) {
	return GeneratePrimeWithParams(bits, DefaultRounds, 0)
}

// GeneratePrimeWithParams is GeneratePrime with an explicit round count and
// an optional cap on the number of candidates. maxAttempts <= 0 means
// unbounded; otherwise rsatext.ErrExhaustedAttempts is returned once the cap
// is reached.
func GeneratePrimeWithParams(bits, rounds, maxAttempts int) (*big.Int, error) {
	if err := utils.CheckBits(bits); err != nil {
		return nil, err
	}
	if err := utils.CheckPositive(rounds, "rounds"); err != nil {
		return nil, err
	}

	for attempt := 1; maxAttempts <= 0 || attempt <= maxAttempts; attempt++ {
		// Top bit fixes the length, bottom bit makes it odd.
		candidate, err := utils.RandomOddBits(bits)
		if err != nil {
			return nil, err
		}
		ok, err := IsProbablePrime(candidate, rounds)
		if err != nil {
			return nil, err
		}
		if ok {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("%w: no %d-bit prime in %d candidates", rsatext.ErrExhaustedAttempts, bits, maxAttempts)
}
