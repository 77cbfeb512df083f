package handles

// Find returns the infos owned by ownerPID whose name is exactly expectedName,
// in their original order.
func Find(infos []ResolvedHandleInfo, ownerPID uint32, expectedName string) []ResolvedHandleInfo {
	target := MutexTarget{Name: expectedName, OwnerPID: ownerPID}

	var matches []ResolvedHandleInfo
	for _, info := range infos {
		if target.Matches(info) {
			matches = append(matches, info)
		}
	}

	return matches
}
