package workflow

import (
	"fmt"
	"sort"
	"sync"
)

// Recomputation and close are serialized per (store, region): two
// concurrent writes into the same region must not interleave their
// recomputes, while unrelated regions and tenants stay fully concurrent.
// Same shape as the per-business mutex map the accounting pipeline uses.

var (
	regionMutexMap = make(map[string]*sync.Mutex)
	globalMutex    = &sync.Mutex{}
)

func regionMutex(storeId string, regionId int) *sync.Mutex {
	key := fmt.Sprintf("%s:%d", storeId, regionId)

	globalMutex.Lock()
	mutex, exists := regionMutexMap[key]
	if !exists {
		mutex = &sync.Mutex{}
		regionMutexMap[key] = mutex
	}
	globalMutex.Unlock()

	return mutex
}

// lockRegions acquires every (storeId, region) mutex in ascending region
// order, so overlapping multi-region recomputes cannot deadlock. The
// returned func releases in reverse order.
func lockRegions(storeId string, regionIds []int) func() {
	ids := make([]int, 0, len(regionIds))
	seen := make(map[int]struct{}, len(regionIds))
	for _, id := range regionIds {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	locked := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		m := regionMutex(storeId, id)
		m.Lock()
		locked = append(locked, m)
	}

	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}
}
