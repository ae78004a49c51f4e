package status

import (
	"fmt"
	"strconv"
)

// DeterministicID derives a stable, UUID-shaped id from the identifying
// tuple (name, region, category, address, port). The same tuple always
// yields the same id, which turns service creation into an idempotent
// upsert instead of producing duplicates.
//
// The hash is the classic 31-multiplier string hash folded to 32 bits and
// spread across a UUID layout; it only needs to be stable, not
// collision-proof or cryptographic.
func DeterministicID(ins InsertService) string {
	port := ""
	if ins.Port != 0 {
		port = strconv.Itoa(ins.Port)
	}
	key := fmt.Sprintf("%s-%s-%s-%s-%s", ins.Name, ins.Region, ins.Category, ins.Address, port)

	var h uint32
	for _, r := range key {
		h = (h << 5) - h + uint32(r)
	}

	hex := fmt.Sprintf("%030x", h)
	return fmt.Sprintf("%s-%s-4%s-a%s-%s", hex[0:8], hex[8:12], hex[12:15], hex[15:18], hex[18:30])
}
