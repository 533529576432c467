// Copyright 2025 The MCU-sub012 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcutable

import "hash/maphash"

// hashFn hashes a key to a uint64. The default implementation is built on
// hash/maphash with a per-container seed, so two containers holding the same
// keys produce different probe orders. Replaceable via WithHash.
type hashFn[K comparable] func(K) uint64

func makeHashFn[K comparable]() hashFn[K] {
	seed := maphash.MakeSeed()
	return func(k K) uint64 {
		return maphash.Comparable(seed, k)
	}
}

// hashSeeds[c-1] is the additive seed for a table of capacity c. The values
// were tuned offline to minimize total collisions across uniformly
// distributed keys for every capacity up to 255.
var hashSeeds = [255]uint16{
	1, 3, 1, 2, 12, 34, 49, 127, 981, 594, 2052, 1044, 49375, 53321, 10649, 380, 17924, 4814, 21417, 27973, 2711, 25859, 19375, 30550, 46560,
	27453, 40930, 18546, 22584, 6562, 23268, 53300, 5169, 40037, 41846, 33642, 27539, 20618, 64175, 59684, 19330, 42712, 1875, 43525,
	64229, 36685, 20704, 31013, 9442, 25741, 38699, 30829, 1037, 43586, 12733, 27755, 61573, 48797, 42204, 31935, 63893, 11520, 24363,
	22963, 48454, 27302, 4153, 51261, 31542, 19673, 20041, 41237, 5395, 45652, 65105, 42390, 32730, 58752, 23485, 22238, 45897, 30628,
	18218, 56135, 64169, 23873, 33359, 41164, 30553, 2477, 26146, 25258, 38555, 36956, 55323, 36955, 28145, 34934, 24128, 44346, 57422,
	17639, 10847, 14692, 58631, 62805, 44332, 23472, 30505, 42232, 45541, 28020, 27608, 47457, 7888, 22815, 33549, 56415, 36346, 1458,
	24626, 39447, 35548, 23130, 30783, 58784, 9345, 3842, 59278, 15268, 9092, 37766, 62289, 49252, 39060, 6744, 6888, 35294, 61301, 8810,
	35659, 54890, 27484, 15082, 41652, 55021, 24111, 2335, 8341, 24842, 22493, 7374, 8563, 24125, 14717, 49767, 39395, 44696, 18306, 6331,
	60974, 28892, 34381, 22501, 47759, 10173, 19659, 58273, 56330, 31516, 39378, 4702, 55814, 58567, 26173, 4818, 19669, 63836, 59751,
	30066, 1339, 38164, 11732, 7403, 39225, 5556, 44476, 33594, 2491, 63186, 58885, 50149, 51242, 19350, 18232, 10553, 65382, 61292, 25227,
	14925, 29984, 55349, 36245, 10413, 37264, 43980, 6598, 38559, 21451, 18880, 54303, 48748, 48658, 34723, 36902, 39886, 52936, 28903,
	13346, 6541, 14553, 59345, 4998, 45510, 62008, 16457, 47400, 9316, 21719, 13975, 36364, 17815, 4488, 40578, 7847, 14591, 1443, 35610,
	8353, 23187, 41174, 31424, 24346, 35663, 45976, 26208, 20988, 39438, 52284, 7982, 58000, 5705, 16935, 5340, 7,
}

func gcd(a uint16, b uint8) uint8 {
	for b != 0 {
		a, b = uint16(b), uint8(a%uint16(b))
	}
	return uint8(a)
}

// probeStep returns the probe stride for a table of the given capacity. The
// stride is always coprime with the capacity, so repeated probing visits
// every slot exactly once per cycle.
func probeStep(capacity uint8) uint8 {
	c := uint16(capacity)
	if c <= 10 {
		return 1
	}
	if c <= 20 {
		if c == 14 || c == 18 {
			return 5
		}
		return uint8(c/2 + c%2 - 1)
	}
	b := uint8(c/10 - 1)
	for b%10 == 0 || gcd(c, b) > 1 {
		b--
	}
	return b
}

// probeSeq walks the slots of a table of the given capacity, starting at a
// seeded position derived from the key's hash and advancing by a
// capacity-coprime stride. The zero value is not usable; construct with
// makeProbeSeq.
//
//	for seq := makeProbeSeq(h, cap, step); ; seq = seq.next() {
//		... seq.offset ...
//	}
type probeSeq struct {
	capacity uint8
	step     uint8
	offset   uint8
}

func makeProbeSeq(h uint64, capacity, step uint8) probeSeq {
	return probeSeq{
		capacity: capacity,
		step:     step,
		offset:   uint8((uint64(hashSeeds[capacity-1]) + h) % uint64(capacity)),
	}
}

func (s probeSeq) next() probeSeq {
	sum := uint16(s.offset) + uint16(s.step)
	if s.capacity&(s.capacity-1) == 0 {
		s.offset = uint8(sum) & (s.capacity - 1)
	} else {
		s.offset = uint8(sum % uint16(s.capacity))
	}
	return s
}
