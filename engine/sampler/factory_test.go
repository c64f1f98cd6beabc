package sampler

import "testing"

type fakeRealizer struct {
	created int
	destroyed int
}

type fakeGPUSampler struct{ id int }

func (f *fakeRealizer) CreateSampler(a Abstract) (GPUSampler, error) {
	f.created++
	return &fakeGPUSampler{id: f.created}, nil
}

func (f *fakeRealizer) DestroySampler(s GPUSampler) error {
	f.destroyed++
	return nil
}

func TestFactoryDedupesIdenticalSamplers(t *testing.T) {
	r := &fakeRealizer{}
	f := NewFactory(r, nil)

	a := Default()
	b := Default()

	s1, err := f.GetSampler(a)
	if err != nil {
		t.Fatalf("GetSampler: %v", err)
	}
	s2, err := f.GetSampler(b)
	if err != nil {
		t.Fatalf("GetSampler: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected identical AbstractSampler values to share one GPU sampler")
	}
	if r.created != 1 {
		t.Fatalf("expected exactly one realized sampler, got %d", r.created)
	}
	if f.Size() != 1 {
		t.Fatalf("expected cache size 1, got %d", f.Size())
	}
}

func TestFactoryRefcountReachesZeroAndRemoves(t *testing.T) {
	r := &fakeRealizer{}
	f := NewFactory(r, nil)
	a := Default()

	if _, err := f.GetSampler(a); err != nil {
		t.Fatal(err)
	}
	if _, err := f.GetSampler(a); err != nil {
		t.Fatal(err)
	}
	if err := f.ReleaseSampler(a); err != nil {
		t.Fatal(err)
	}
	if f.Size() != 1 {
		t.Fatalf("expected sampler to survive first release, cache size = %d", f.Size())
	}
	if err := f.ReleaseSampler(a); err != nil {
		t.Fatal(err)
	}
	if f.Size() != 0 {
		t.Fatalf("expected cache empty after matched get/release pairs, size = %d", f.Size())
	}
	if r.destroyed != 1 {
		t.Fatalf("expected sampler destroyed exactly once, got %d", r.destroyed)
	}
}

func TestDistinctSamplersGetDistinctEntries(t *testing.T) {
	r := &fakeRealizer{}
	f := NewFactory(r, nil)

	a := Default()
	b := Default()
	b.AnisotropyMax = 16

	if _, err := f.GetSampler(a); err != nil {
		t.Fatal(err)
	}
	if _, err := f.GetSampler(b); err != nil {
		t.Fatal(err)
	}
	if f.Size() != 2 {
		t.Fatalf("expected 2 distinct cache entries, got %d", f.Size())
	}
}
