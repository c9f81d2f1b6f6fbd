// internal/service/order/domain/state.go
package domain

// Status 定义了订单的生命周期状态
type Status string

const (
	StatusCreated         Status = "CREATED"          // 订单已创建，等待分配配送员
	StatusAssigned        Status = "ASSIGNED"         // 已分配配送员
	StatusOutForDelivery  Status = "OUT_FOR_DELIVERY" // 配送中
	StatusDelivered       Status = "DELIVERED"        // 已送达（终态，仅可发起退货）
	StatusCancelled       Status = "CANCELLED"        // 已取消（终态）
	StatusReturned        Status = "RETURNED"         // 全额退货（终态）
	StatusPartialReturned Status = "PARTIAL_RETURNED" // 部分退货（终态）
)

// Valid 判断状态是否属于封闭集合。
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusAssigned, StatusOutForDelivery,
		StatusDelivered, StatusCancelled, StatusReturned, StatusPartialReturned:
		return true
	}
	return false
}

// Terminal 判断状态是否为终态。DELIVERED 对前向流转是终态，
// 但仍可通过退货事件转入 RETURNED / PARTIAL_RETURNED。
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusReturned, StatusPartialReturned:
		return true
	}
	return false
}

// Event 是驱动状态机的事件集合。
type Event string

const (
	EventAssign        Event = "assign"
	EventStartDelivery Event = "start_delivery"
	EventDeliver       Event = "deliver"
	EventCancel        Event = "cancel"
	EventReturn        Event = "return"
	EventEdit          Event = "edit"
)

// transitions 是状态机的唯一事实来源：每个事件允许的起始状态。
// 除 CREATED→CANCELLED 外，不允许跳过中间状态。
var transitions = map[Event][]Status{
	EventAssign:        {StatusCreated},
	EventStartDelivery: {StatusAssigned},
	EventDeliver:       {StatusOutForDelivery},
	EventCancel:        {StatusCreated, StatusAssigned},
	EventReturn:        {StatusDelivered},
	EventEdit:          {StatusCreated, StatusAssigned, StatusOutForDelivery},
}

// CanTransition 判断当前状态能否响应给定事件。
func CanTransition(from Status, event Event) bool {
	for _, s := range transitions[event] {
		if s == from {
			return true
		}
	}
	return false
}

// RequiredStatuses 返回事件合法的起始状态，用于构造冲突错误消息。
func RequiredStatuses(event Event) []Status {
	return transitions[event]
}

// PaymentMethod 是支付方式集合。CUSTOMER_CREDIT 表示记账（赊账）。
type PaymentMethod string

const (
	PaymentCash           PaymentMethod = "CASH"
	PaymentCard           PaymentMethod = "CARD"
	PaymentUPI            PaymentMethod = "UPI"
	PaymentCustomerCredit PaymentMethod = "CUSTOMER_CREDIT"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentCustomerCredit:
		return true
	}
	return false
}

// PaymentStatus 是订单的支付状态。
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// ReturnType 区分全额退货与部分退货。
type ReturnType string

const (
	ReturnFull    ReturnType = "FULL"
	ReturnPartial ReturnType = "PARTIAL"
)

func (t ReturnType) Valid() bool {
	return t == ReturnFull || t == ReturnPartial
}
