package catalog

import (
	"encoding/json"
	"strings"
	"time"

	"trade_console/internal/query"
	"trade_console/internal/session"
	"trade_console/internal/validation"
	"trade_console/internal/xts"
)

const EmployeeDataType = "XTSEmployee"

var genders = enum{
	dataType: "XTSGender",
	values: []enumValue{
		{Key: "male", ID: "Male", Presentation: "Male"},
		{Key: "female", ID: "Female", Presentation: "Female"},
	},
}

var EmployeeSpec = query.Spec{
	DataType: EmployeeDataType,
	Search: []query.SearchField{
		{Key: "description", Property: "description"},
	},
	Filters: []query.Filter{
		{Key: "gender", Property: "gender", Kind: query.Enum, Values: genders.presentations()},
		{Key: "status", Kind: query.Status},
	},
}

type Employee struct {
	ID          string
	Description string
	Gender      string
	BirthDate   time.Time
	Position    string
	Phone       string
	Email       string
	Invalid     bool
}

type EmployeeDraft struct {
	Description string
	Gender      string
	BirthDate   time.Time
	Position    string
	Phone       string
	Email       string
	Invalid     bool
}

type employeeObject struct {
	objectHeader
	Description string       `json:"description"`
	Gender      xts.ObjectID `json:"gender"`
	BirthDate   string       `json:"birthDate"`
	Position    string       `json:"position"`
	Phone       string       `json:"phone"`
	Email       string       `json:"email"`
	Invalid     bool         `json:"invalid"`
}

func decodeEmployee(raw json.RawMessage) (Employee, error) {
	obj, err := decodeObject[employeeObject](raw, EmployeeDataType)
	if err != nil {
		return Employee{}, err
	}
	return Employee{
		ID:          obj.ObjectID.ID,
		Description: obj.Description,
		Gender:      genders.key(obj.Gender),
		BirthDate:   parseDate(obj.BirthDate),
		Position:    obj.Position,
		Phone:       obj.Phone,
		Email:       obj.Email,
		Invalid:     obj.Invalid,
	}, nil
}

func employeeDraft(e Employee) EmployeeDraft {
	return EmployeeDraft{
		Description: e.Description,
		Gender:      e.Gender,
		BirthDate:   e.BirthDate,
		Position:    e.Position,
		Phone:       e.Phone,
		Email:       e.Email,
		Invalid:     e.Invalid,
	}
}

func validateEmployee(d EmployeeDraft, now time.Time) error {
	v := validation.Violations{}
	validation.Required("description", d.Description, v)
	validation.NotInFuture("birthDate", d.BirthDate, now, v)
	validation.Phone("phone", d.Phone, v)
	validation.Email("email", d.Email, v)
	if d.Gender != "" && !genders.has(d.Gender) {
		v["gender"] = "unknown"
	}
	return v.Err()
}

func encodeEmployee(id string, d EmployeeDraft, _ session.Session) any {
	return employeeObject{
		objectHeader: newHeader(EmployeeDataType, id, d.Description),
		Description:  strings.TrimSpace(d.Description),
		Gender:       genders.ref(d.Gender),
		BirthDate:    formatDate(d.BirthDate),
		Position:     strings.TrimSpace(d.Position),
		Phone:        strings.TrimSpace(d.Phone),
		Email:        strings.TrimSpace(d.Email),
		Invalid:      d.Invalid,
	}
}

var EmployeeEntity = Entity[Employee, EmployeeDraft]{
	DataType: EmployeeDataType,
	Spec:     EmployeeSpec,
	Decode:   decodeEmployee,
	ID:       func(e Employee) string { return e.ID },
	Draft:    employeeDraft,
	Validate: validateEmployee,
	Encode:   encodeEmployee,
}
