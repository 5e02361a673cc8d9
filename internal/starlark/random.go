package starlark

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// randomSource backs the "random" module and the uuid builtin of one run.
// A seeded source makes both reproducible.
type randomSource struct {
	rng *rand.Rand
}

func newRandomSource(seed int64, seeded bool) *randomSource {
	r := &randomSource{}
	if seeded {
		r.reseed(seed)
	} else {
		r.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return r
}

func (r *randomSource) reseed(seed int64) {
	r.rng = rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// Read fills p from the source. It lets uuid generation follow the seed.
func (r *randomSource) Read(p []byte) (int, error) {
	var buf [8]byte
	for i := 0; i < len(p); i += 8 {
		binary.LittleEndian.PutUint64(buf[:], r.rng.Uint64())
		copy(p[i:], buf[:])
	}
	return len(p), nil
}

func (r *randomSource) module() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "random",
		Members: starlark.StringDict{
			"seed":    starlark.NewBuiltin("random.seed", r.seedFn),
			"random":  starlark.NewBuiltin("random.random", r.randomFn),
			"randint": starlark.NewBuiltin("random.randint", r.randint),
			"uniform": starlark.NewBuiltin("random.uniform", r.uniform),
			"choice":  starlark.NewBuiltin("random.choice", r.choice),
			"shuffle": starlark.NewBuiltin("random.shuffle", r.shuffle),
		},
	}
}

func (r *randomSource) seedFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seed int64
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &seed); err != nil {
		return nil, err
	}
	r.reseed(seed)
	return starlark.None, nil
}

func (r *randomSource) randomFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.Float(r.rng.Float64()), nil
}

// randint returns an integer in [a, b], both ends included.
func (r *randomSource) randint(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var lo, hi int64
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &lo, &hi); err != nil {
		return nil, err
	}
	if lo > hi {
		return nil, fmt.Errorf("%s: empty range [%d, %d]", b.Name(), lo, hi)
	}
	return starlark.MakeInt64(lo + r.rng.Int64N(hi-lo+1)), nil
}

func (r *randomSource) uniform(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var a, c starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &a, &c); err != nil {
		return nil, err
	}
	lo, ok := starlark.AsFloat(a)
	if !ok {
		return nil, fmt.Errorf("%s: got %s, want number", b.Name(), a.Type())
	}
	hi, ok := starlark.AsFloat(c)
	if !ok {
		return nil, fmt.Errorf("%s: got %s, want number", b.Name(), c.Type())
	}
	return starlark.Float(lo + (hi-lo)*r.rng.Float64()), nil
}

func (r *randomSource) choice(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Indexable
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &seq); err != nil {
		return nil, err
	}
	if seq.Len() == 0 {
		return nil, fmt.Errorf("%s: empty sequence", b.Name())
	}
	return seq.Index(r.rng.IntN(seq.Len())), nil
}

func (r *randomSource) shuffle(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var list *starlark.List
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &list); err != nil {
		return nil, err
	}
	var err error
	r.rng.Shuffle(list.Len(), func(i, j int) {
		if err != nil {
			return
		}
		vi, vj := list.Index(i), list.Index(j)
		if err = list.SetIndex(i, vj); err == nil {
			err = list.SetIndex(j, vi)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, nil
}

// uuid returns a random (version 4) UUID string.
func (r *randomSource) uuid(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.String(id.String()), nil
}
