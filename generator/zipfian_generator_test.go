package generator

import (
	"strconv"
	"testing"

	"github.com/hhkbp2/testify/require"
)

func TestZipfianGenerator(t *testing.T) {
	runTestZipfianGenerator(t, func(min, max int64) IntegerGenerator {
		return NewZipfianGeneratorByInterval(NewRandom(1), min, max)
	})
}

func TestScrambledZipfianGenerator(t *testing.T) {
	runTestZipfianGenerator(t, func(min, max int64) IntegerGenerator {
		return NewScrambledZipfianGenerator(NewRandom(1), min, max)
	})
}

func runTestZipfianGenerator(t *testing.T, f func(min, max int64) IntegerGenerator) {
	min := int64(1000)
	max := int64(2000)
	g := f(min, max)
	total := 1000
	for i := 0; i < total; i++ {
		last := g.NextInt()
		require.True(t, last >= min && last <= max)
		require.Equal(t, last, g.LastInt())
		str := g.NextString()
		v, err := strconv.ParseInt(str, 0, 64)
		require.Nil(t, err)
		require.True(t, v >= min && v <= max)
	}
}

func TestZipfianGeneratorSkew(t *testing.T) {
	g := NewZipfianGeneratorByInterval(NewRandom(5), 0, 99)
	counts := make([]int, 100)
	for i := 0; i < 10000; i++ {
		counts[g.NextInt()]++
	}
	require.True(t, counts[0] > counts[50])
	require.True(t, counts[1] > counts[99])
}

func TestZipfianGeneratorTinyIntervals(t *testing.T) {
	one := NewZipfianGeneratorByInterval(NewRandom(1), 7, 7)
	two := NewZipfianGeneratorByInterval(NewRandom(1), 0, 1)
	for i := 0; i < 100; i++ {
		require.Equal(t, int64(7), one.NextInt())
		v := two.NextInt()
		require.True(t, v == 0 || v == 1)
	}
}

func TestHash(t *testing.T) {
	require.Equal(t, Hash(12345), Hash(12345))
	require.NotEqual(t, Hash(1), Hash(2))
}
