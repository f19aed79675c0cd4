// Package authz decides whether an account may perform an action on a
// resource. Every role check in the service goes through CanAct.
package authz

import "freshharvest/internal/models"

// Actor is the authenticated account performing a request.
type Actor struct {
	ID   string
	Role models.Role
}

// IsAdmin reports whether a has the administrative role.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// IsVendor reports whether a has the vendor role.
func (a Actor) IsVendor() bool { return a.Role == models.RoleVendor }

// Action is an operation subject to authorization.
type Action string

const (
	ActionViewOrder         Action = "order:view"
	ActionUpdateOrderStatus Action = "order:update-status"
	ActionListVendorOrders  Action = "order:list-vendor"
	ActionListAllOrders     Action = "order:list-all"
	ActionViewSalesStats    Action = "order:sales-stats"
	ActionCreateProduct     Action = "product:create"
	ActionManageProduct     Action = "product:manage"
	ActionSetProductStatus  Action = "product:set-status"
	ActionListVendorCatalog Action = "product:list-vendor"
	ActionManageAccounts    Action = "account:manage"
	ActionViewDashboard     Action = "store:dashboard"
)

// Resource is what an action applies to. Fields irrelevant to the action are nil.
type Resource struct {
	Order   *models.Order
	Product *models.Product
	// VendorID names the vendor whose data is requested.
	VendorID string
}

// Decision is the outcome of a policy evaluation.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

// CanAct evaluates the policy for actor performing action on res.
func CanAct(actor Actor, action Action, res Resource) Decision {
	if actor.ID == "" {
		return Deny
	}
	if actor.IsAdmin() {
		return Allow
	}

	switch action {
	case ActionViewOrder:
		if res.Order == nil {
			return Deny
		}
		if res.Order.UserID == actor.ID {
			return Allow
		}
		return Decision(actor.IsVendor() && res.Order.HasVendor(actor.ID))

	case ActionUpdateOrderStatus:
		// Vendors act through the vendor captured on the line items, not the
		// current owner of the product.
		return Decision(actor.IsVendor() && res.Order != nil && res.Order.HasVendor(actor.ID))

	case ActionListVendorOrders, ActionViewSalesStats, ActionCreateProduct:
		return Decision(actor.IsVendor())

	case ActionManageProduct:
		return Decision(actor.IsVendor() && res.Product != nil && res.Product.VendorID == actor.ID)

	case ActionListVendorCatalog:
		return Decision(actor.IsVendor() && res.VendorID == actor.ID)
	}

	// ActionListAllOrders, ActionSetProductStatus, ActionManageAccounts,
	// ActionViewDashboard and unknown actions are admin only.
	return Deny
}

// Require returns models.ErrForbidden-kind error when CanAct denies.
func Require(actor Actor, action Action, res Resource, message string) error {
	if CanAct(actor, action, res) {
		return nil
	}
	return models.NewDomainError(models.KindForbidden, "%s", message)
}
