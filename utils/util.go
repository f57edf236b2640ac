package utils

// Find 按ID批量查找数据
// 如果ids为空则返回全部data（保持data原有顺序），
// 否则按ids顺序返回找到的数据，不存在的ID记录到failedIDs中。
func Find[K comparable, T any](dataMap map[K]T, data []T, ids []K) (okData []T, failedIDs []K) {
	if len(ids) == 0 {
		return append([]T(nil), data...), nil
	}
	okData = make([]T, 0, len(ids))
	for _, id := range ids {
		if d, ok := dataMap[id]; ok {
			okData = append(okData, d)
		} else {
			failedIDs = append(failedIDs, id)
		}
	}
	return
}
