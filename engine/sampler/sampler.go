// Package sampler implements AbstractSampler (component C): a value-type
// bundle of sampler state with a stable 32-bit hash key, and SamplerFactory
// (component I): a refcounted cache of realized GPU sampler objects keyed by
// that hash.
package sampler

import (
	"hash/fnv"
	"math"
)

type FilterMode int

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

type AddressMode int

const (
	AddressRepeat AddressMode = iota
	AddressMirroredRepeat
	AddressClampToEdge
	AddressClampToBorder
)

type BorderColor int

const (
	BorderTransparentBlack BorderColor = iota
	BorderOpaqueBlack
	BorderOpaqueWhite
)

// Abstract is an immutable value-type description of a GPU sampler's
// configuration. Two Abstract values with identical fields are
// interchangeable and should realize to the same cached GPU sampler.
type Abstract struct {
	MinFilter     FilterMode
	MagFilter     FilterMode
	AddressModeU  AddressMode
	AddressModeV  AddressMode
	AddressModeW  AddressMode
	BorderColor   BorderColor
	AnisotropyMax float32
}

// Key computes a stable 32-bit hash of the sampler's configuration, used by
// SamplerFactory to dedupe identical samplers across ScinthDefs.
func (a Abstract) Key() uint32 {
	h := fnv.New32a()
	var buf [10]byte
	buf[0] = byte(a.MinFilter)
	buf[1] = byte(a.MagFilter)
	buf[2] = byte(a.AddressModeU)
	buf[3] = byte(a.AddressModeV)
	buf[4] = byte(a.AddressModeW)
	buf[5] = byte(a.BorderColor)
	bits := math.Float32bits(a.AnisotropyMax)
	buf[6] = byte(bits)
	buf[7] = byte(bits >> 8)
	buf[8] = byte(bits >> 16)
	buf[9] = byte(bits >> 24)
	_, _ = h.Write(buf[:])
	return h.Sum32()
}

// Default returns the sampler configuration used when a ScinthDef's
// sampling VGen does not specify one: bilinear filtering, clamp to edge, no
// anisotropy.
func Default() Abstract {
	return Abstract{
		MinFilter:    FilterLinear,
		MagFilter:    FilterLinear,
		AddressModeU: AddressClampToEdge,
		AddressModeV: AddressClampToEdge,
		AddressModeW: AddressClampToEdge,
		BorderColor:  BorderTransparentBlack,
	}
}
