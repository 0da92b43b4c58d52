package driver

import "github.com/example/delivery-tracking/internal/models"

// assignmentEdges is the forward-only delivery sub-status machine. No
// skipping assigned -> delivered without the pickup step.
var assignmentEdges = map[models.AssignmentStatus][]models.AssignmentStatus{
	models.AssignmentAssigned: {models.AssignmentPickedUp},
	models.AssignmentPickedUp: {models.AssignmentOnTheWay, models.AssignmentDelivered},
	models.AssignmentOnTheWay: {models.AssignmentDelivered},
}

func CanAdvance(from, to models.AssignmentStatus) bool {
	for _, next := range assignmentEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanSetAvailability validates an availability change. Drivers may only
// toggle offline<->available themselves; on_delivery is entered and left
// by the assignment lifecycle.
func CanSetAvailability(from, to models.Availability, driverInitiated bool) bool {
	if from == to {
		return false
	}
	if driverInitiated {
		return (from == models.DriverOffline && to == models.DriverAvailable) ||
			(from == models.DriverAvailable && to == models.DriverOffline)
	}
	return (from == models.DriverAvailable && to == models.DriverOnDelivery) ||
		(from == models.DriverOnDelivery && to == models.DriverAvailable)
}
