package bus

import "strconv"

// Subjects follow the {resource}.{verb}.{id?} convention. Builders live here
// so senders and listeners agree on the exact strings.

const (
	SubjectUserGet            = "user.get"
	SubjectUserCreate         = "user.create"
	SubjectCartCreate         = "cart.create"
	SubjectCustomerGetCurrent = "customer.getCurrent"
)

func UserDeleteSubject(userID int) string { return "user.delete." + strconv.Itoa(userID) }

func UserSuspendSubject(userID int) string { return "user.suspend." + strconv.Itoa(userID) }

func UserReactivateSubject(userID int) string { return "user.reactivate." + strconv.Itoa(userID) }

func ProductGetSubject(productID int) string { return "product.get." + strconv.Itoa(productID) }

func ProductUpdateSubject(productID int) string { return "product.update." + strconv.Itoa(productID) }

func CartDeleteSubject(cartID int) string { return "cart.delete." + strconv.Itoa(cartID) }

func CartValidateSubject(cartID int) string { return "cart.validate." + strconv.Itoa(cartID) }

func CartGetItemsSubject(cartID int) string { return "cart.getItems." + strconv.Itoa(cartID) }

func CartRemoveAllByCartIDSubject(cartID int) string {
	return "cart.removeAllByCartId." + strconv.Itoa(cartID)
}

func CartRefreshStateSubject(cartID int) string {
	return "cart.refreshState." + strconv.Itoa(cartID)
}

func CartUpdateAllByProductIDSubject(productID int) string {
	return "cart.updateAllByProductId." + strconv.Itoa(productID)
}

func CartRemoveAllByProductIDSubject(productID int) string {
	return "cart.removeAllByProductId." + strconv.Itoa(productID)
}

func AddressGetSubject(addressID int) string {
	return "address.getAddress." + strconv.Itoa(addressID)
}

func AddressUpdateSubject(addressID int) string {
	return "address.update." + strconv.Itoa(addressID)
}

func OrderDeleteAllSubject(cartID int) string {
	return "order.deleteAll." + strconv.Itoa(cartID)
}
