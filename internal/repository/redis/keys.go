package redis

import "fmt"

const ns = "parkgo:v1"

func KeyFacilitySummary(facilityID int64) string {
	return fmt.Sprintf("%s:facility:%d:summary", ns, facilityID)
}

func KeyFacilityAvailability(facilityID int64) string {
	return fmt.Sprintf("%s:facility:%d:availability", ns, facilityID)
}

func KeyFacilityLotMap(facilityID int64) string {
	return fmt.Sprintf("%s:facility:%d:lotmap", ns, facilityID)
}

func KeyEntryLimit(bucket string) string {
	return fmt.Sprintf("%s:ratelimit:entries:%s", ns, bucket)
}

func ChannelFacilitiesChanged() string {
	return ns + ":facilities:changed"
}
