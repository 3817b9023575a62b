package pricestate

import (
	"math"
	"sync"
	"testing"

	"arbwatch/internal/domain/models"
)

func TestGetBeforeSetIsUnset(t *testing.T) {
	s := New("binance", "coinbase")
	for _, v := range []models.Venue{"binance", "coinbase", "kraken"} {
		if p, ok := s.Get(v); ok || p != 0 {
			t.Fatalf("venue %s: expected unset, got %v ok=%v", v, p, ok)
		}
	}
}

func TestLastWriteWins(t *testing.T) {
	s := New("binance")
	s.Set("binance", 100)
	s.Set("binance", 101.5)
	p, ok := s.Get("binance")
	if !ok || p != 101.5 {
		t.Fatalf("expected 101.5, got %v ok=%v", p, ok)
	}
}

func TestInvalidPricesIgnored(t *testing.T) {
	s := New("binance")
	s.Set("binance", 0)
	s.Set("binance", -3)
	s.Set("binance", math.NaN())
	s.Set("binance", math.Inf(1))
	if _, ok := s.Get("binance"); ok {
		t.Fatalf("expected unset after invalid writes")
	}
	s.Set("binance", 42)
	s.Set("binance", -1)
	if p, _ := s.Get("binance"); p != 42 {
		t.Fatalf("invalid write overwrote real price: %v", p)
	}
}

func TestVenuesIndependent(t *testing.T) {
	s := New()
	s.Set("a", 1)
	if _, ok := s.Get("b"); ok {
		t.Fatalf("write to a leaked into b")
	}
	got := s.Venues()
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("unexpected venues %v", got)
	}
}

func TestSampleCarriesTimestamp(t *testing.T) {
	s := New("a")
	s.Set("a", 10)
	sm, ok := s.Sample("a")
	if !ok || sm.ObservedAt.IsZero() || sm.Venue != "a" {
		t.Fatalf("unexpected sample %+v ok=%v", sm, ok)
	}
}

func TestConcurrentSingleWriterPerVenue(t *testing.T) {
	s := New("a", "b")
	const n = 10000
	var wg sync.WaitGroup
	for _, v := range []models.Venue{"a", "b"} {
		wg.Add(1)
		go func(v models.Venue) {
			defer wg.Done()
			for i := 1; i <= n; i++ {
				s.Set(v, float64(i))
			}
		}(v)
	}
	stop := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			last := 0.0
			for {
				select {
				case <-stop:
					return
				default:
				}
				p, ok := s.Get("a")
				if ok && p < last {
					t.Errorf("observed %v after %v", p, last)
					return
				}
				last = p
			}
		}()
	}
	wg.Wait()
	close(stop)
	readers.Wait()
	for _, v := range []models.Venue{"a", "b"} {
		if p, _ := s.Get(v); p != n {
			t.Fatalf("venue %s: expected %d, got %v", v, n, p)
		}
	}
}
