package erp

import "time"

// HR entity schema. Archival is an explicit Active flag, not a gorm soft
// delete, because archiving is part of the tool surface.

type Employee struct {
	ID              uint   `gorm:"primaryKey"`
	Name            string `gorm:"size:128;not null"`
	WorkEmail       string `gorm:"size:128"`
	WorkPhone       string `gorm:"size:32"`
	JobTitle        string `gorm:"size:128"`
	DepartmentID    *uint  `gorm:"index"`
	JobID           *uint  `gorm:"index"`
	ManagerID       *uint  `gorm:"index"`
	Active          bool   `gorm:"not null;default:true;index"`
	HireDate        *time.Time
	DepartureDate   *time.Time
	BHXHCode        string `gorm:"column:bhxh_code;size:32"`
	PersonalTaxCode string `gorm:"size:32"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Employee) TableName() string { return "employees" }

type Department struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:128;not null"`
	ManagerID *uint  `gorm:"index"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Department) TableName() string { return "departments" }

type Job struct {
	ID                uint   `gorm:"primaryKey"`
	Name              string `gorm:"size:128;not null"`
	DepartmentID      *uint  `gorm:"index"`
	ExpectedEmployees int    `gorm:"not null;default:1"`
	Description       string `gorm:"type:text"`
	Requirements      string `gorm:"type:text"`
	Active            bool   `gorm:"not null;default:true"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Job) TableName() string { return "jobs" }

// Contract states: draft, open, close, cancel.
type Contract struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"size:128;not null"`
	EmployeeID  uint      `gorm:"index;not null"`
	DateStart   time.Time `gorm:"not null"`
	DateEnd     *time.Time
	Wage        float64 `gorm:"not null"`
	State       string  `gorm:"size:16;not null;default:'draft';index"`
	StructureID *uint   `gorm:"index"`
	Notes       string  `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Contract) TableName() string { return "contracts" }

type Attendance struct {
	ID          uint      `gorm:"primaryKey"`
	EmployeeID  uint      `gorm:"index;not null"`
	CheckIn     time.Time `gorm:"not null;index"`
	CheckOut    *time.Time
	WorkedHours float64 `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Attendance) TableName() string { return "attendances" }

type LeaveType struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"size:128;not null"`
	AllocationType string `gorm:"size:32;not null;default:'no'"`
	Active         bool   `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (LeaveType) TableName() string { return "leave_types" }

type LeaveAllocation struct {
	ID           uint    `gorm:"primaryKey"`
	EmployeeID   uint    `gorm:"index;not null"`
	LeaveTypeID  uint    `gorm:"index;not null"`
	NumberOfDays float64 `gorm:"not null"`
	State        string  `gorm:"size:16;not null;default:'draft'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (LeaveAllocation) TableName() string { return "leave_allocations" }

// LeaveRequest states: draft, confirm, validate1, validate, refuse, cancel.
type LeaveRequest struct {
	ID           uint      `gorm:"primaryKey"`
	Name         string    `gorm:"size:256;not null"`
	EmployeeID   uint      `gorm:"index;not null"`
	LeaveTypeID  uint      `gorm:"index;not null"`
	DateFrom     time.Time `gorm:"not null"`
	DateTo       time.Time `gorm:"not null"`
	NumberOfDays float64   `gorm:"not null;default:0"`
	State        string    `gorm:"size:16;not null;default:'draft';index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (LeaveRequest) TableName() string { return "leave_requests" }

type SalaryStructure struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:128;not null"`
	Code      string `gorm:"size:32;not null"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SalaryStructure) TableName() string { return "salary_structures" }

type SalaryRule struct {
	ID               uint    `gorm:"primaryKey"`
	Name             string  `gorm:"size:128;not null"`
	Code             string  `gorm:"size:32;not null"`
	Category         string  `gorm:"size:32;not null;default:'other'"`
	Sequence         int     `gorm:"not null;default:100"`
	StructureID      uint    `gorm:"index;not null"`
	AmountFixed      float64 `gorm:"not null;default:0"`
	AmountPercentage float64 `gorm:"not null;default:0"`
	Active           bool    `gorm:"not null;default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (SalaryRule) TableName() string { return "salary_rules" }

// Payslip states: draft, verify, done, cancel.
type Payslip struct {
	ID         uint      `gorm:"primaryKey"`
	Name       string    `gorm:"size:256;not null"`
	EmployeeID uint      `gorm:"index;not null"`
	ContractID *uint     `gorm:"index"`
	DateFrom   time.Time `gorm:"not null"`
	DateTo     time.Time `gorm:"not null"`
	State      string    `gorm:"size:16;not null;default:'draft';index"`
	NetWage    float64   `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Payslip) TableName() string { return "payslips" }

type PayslipLine struct {
	ID        uint    `gorm:"primaryKey"`
	PayslipID uint    `gorm:"index;not null"`
	Name      string  `gorm:"size:128;not null"`
	Code      string  `gorm:"size:32;not null"`
	Category  string  `gorm:"size:32;not null;default:'other'"`
	Sequence  int     `gorm:"not null;default:100"`
	Total     float64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PayslipLine) TableName() string { return "payslip_lines" }

type RecruitmentStage struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:128;not null"`
	Sequence  int    `gorm:"not null;default:10"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (RecruitmentStage) TableName() string { return "recruitment_stages" }

// Applicant terminal states are expressed through EmployeeID (hired) and
// Active=false with a refusal note appended to Description (refused).
type Applicant struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:128;not null"`
	Email        string `gorm:"size:128"`
	Phone        string `gorm:"size:32"`
	JobID        *uint  `gorm:"index"`
	DepartmentID *uint  `gorm:"index"`
	StageID      *uint  `gorm:"index"`
	EmployeeID   *uint  `gorm:"index"`
	Active       bool   `gorm:"not null;default:true;index"`
	Description  string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Applicant) TableName() string { return "applicants" }

type SkillType struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:128;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SkillType) TableName() string { return "skill_types" }

type SkillLevel struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"size:128;not null"`
	SkillTypeID   uint   `gorm:"index;not null"`
	LevelProgress int    `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (SkillLevel) TableName() string { return "skill_levels" }

type Skill struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:128;not null"`
	SkillTypeID uint   `gorm:"index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Skill) TableName() string { return "skills" }

type EmployeeSkill struct {
	ID           uint `gorm:"primaryKey"`
	EmployeeID   uint `gorm:"index;not null"`
	SkillID      uint `gorm:"index;not null"`
	SkillLevelID uint `gorm:"index;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (EmployeeSkill) TableName() string { return "employee_skills" }

type Project struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:128;not null"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Project) TableName() string { return "projects" }

type TimesheetLine struct {
	ID         uint      `gorm:"primaryKey"`
	EmployeeID uint      `gorm:"index;not null"`
	ProjectID  *uint     `gorm:"index"`
	Date       time.Time `gorm:"not null;index"`
	Name       string    `gorm:"size:256"`
	UnitAmount float64   `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (TimesheetLine) TableName() string { return "timesheet_lines" }

// Insurance kinds: bhxh (social), bhyt (health), bhtn (unemployment).
// States: active, suspended, closed.
type Insurance struct {
	ID           uint      `gorm:"primaryKey"`
	EmployeeID   uint      `gorm:"index;not null"`
	Kind         string    `gorm:"size:16;not null;index"`
	PolicyNumber string    `gorm:"size:64"`
	State        string    `gorm:"size:16;not null;default:'active';index"`
	DateStart    time.Time `gorm:"not null"`
	DateEnd      *time.Time
	Premium      float64 `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Insurance) TableName() string { return "insurances" }

type InsurancePayment struct {
	ID          uint      `gorm:"primaryKey"`
	InsuranceID uint      `gorm:"index;not null"`
	Amount      float64   `gorm:"not null"`
	Date        time.Time `gorm:"not null"`
	Note        string    `gorm:"size:256"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (InsurancePayment) TableName() string { return "insurance_payments" }

type EmployeeDocument struct {
	ID          uint   `gorm:"primaryKey"`
	EmployeeID  uint   `gorm:"index;not null"`
	Name        string `gorm:"size:256;not null"`
	ObjectKey   string `gorm:"size:512;not null"`
	ContentType string `gorm:"size:128"`
	Size        int64  `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (EmployeeDocument) TableName() string { return "employee_documents" }

// AllModels lists every HR entity for migration.
func AllModels() []any {
	return []any{
		&Employee{}, &Department{}, &Job{}, &Contract{}, &Attendance{},
		&LeaveType{}, &LeaveAllocation{}, &LeaveRequest{},
		&SalaryStructure{}, &SalaryRule{}, &Payslip{}, &PayslipLine{},
		&RecruitmentStage{}, &Applicant{},
		&SkillType{}, &SkillLevel{}, &Skill{}, &EmployeeSkill{},
		&Project{}, &TimesheetLine{},
		&Insurance{}, &InsurancePayment{}, &EmployeeDocument{},
	}
}
