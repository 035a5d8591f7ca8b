package utils

import "github.com/samber/lo"

// FindBy 按键查找数据
// 功能：keys为空时返回全部数据；否则按keys的顺序返回找到的数据，并把不存在的键记录到失败列表中
// 参数：data-全部数据，key-取键函数，keys-待查找的键
func FindBy[K comparable, T any](data []T, key func(T) K, keys []K) (found []T, missing []K) {
	if len(keys) == 0 {
		return data, nil
	}
	index := lo.SliceToMap(data, func(d T) (K, T) {
		return key(d), d
	})
	found = make([]T, 0, len(keys))
	for _, k := range keys {
		if d, ok := index[k]; ok {
			found = append(found, d)
		} else {
			missing = append(missing, k)
		}
	}
	return
}
