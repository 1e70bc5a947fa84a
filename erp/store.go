package erp

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Record is a row keyed by column name, the currency handlers trade in.
type Record map[string]any

// Store is the only component that talks to the record layer. It exposes a
// uniform search/read/create/write/archive/count capability set over every
// registered HR model.
type Store struct {
	db     *gorm.DB
	models map[string]*modelInfo
}

type modelInfo struct {
	name    string
	typ     reflect.Type
	schema  *schema.Schema
	columns map[string]bool
}

var modelNames = map[string]any{
	"employee":          Employee{},
	"department":        Department{},
	"job":               Job{},
	"contract":          Contract{},
	"attendance":        Attendance{},
	"leave_type":        LeaveType{},
	"leave_allocation":  LeaveAllocation{},
	"leave_request":     LeaveRequest{},
	"salary_structure":  SalaryStructure{},
	"salary_rule":       SalaryRule{},
	"payslip":           Payslip{},
	"payslip_line":      PayslipLine{},
	"recruitment_stage": RecruitmentStage{},
	"applicant":         Applicant{},
	"skill_type":        SkillType{},
	"skill_level":       SkillLevel{},
	"skill":             Skill{},
	"employee_skill":    EmployeeSkill{},
	"project":           Project{},
	"timesheet_line":    TimesheetLine{},
	"insurance":         Insurance{},
	"insurance_payment": InsurancePayment{},
	"employee_document": EmployeeDocument{},
}

// NewStore parses the HR schema and builds the model registry.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("erp: database handle is required")
	}

	cache := &sync.Map{}
	models := make(map[string]*modelInfo, len(modelNames))
	for name, prototype := range modelNames {
		sch, err := schema.Parse(prototype, cache, schema.NamingStrategy{})
		if err != nil {
			return nil, fmt.Errorf("erp: parse schema for %s: %w", name, err)
		}

		columns := make(map[string]bool, len(sch.Fields))
		for _, field := range sch.Fields {
			if field.DBName != "" {
				columns[field.DBName] = true
			}
		}

		models[name] = &modelInfo{
			name:    name,
			typ:     reflect.TypeOf(prototype),
			schema:  sch,
			columns: columns,
		}
	}

	return &Store{db: db, models: models}, nil
}

// Migrate creates or updates the HR tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(AllModels()...)
}

// DB exposes the underlying handle for modules sharing the connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) resolve(model string) (*modelInfo, error) {
	info, ok := s.models[strings.TrimSpace(model)]
	if !ok {
		return nil, ValidationError("unknown model %q", model)
	}
	return info, nil
}

// Search returns records matching the domain. A non-positive limit returns
// everything; order is "<field>" or "<field> desc" against the model's own
// columns.
func (s *Store) Search(ctx context.Context, model string, domain Domain, limit int, order string) ([]Record, error) {
	info, err := s.resolve(model)
	if err != nil {
		return nil, err
	}

	cond, err := compileDomain(domain, info.columns)
	if err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Table(info.schema.Table)
	if cond.sql != "" {
		tx = tx.Where(cond.sql, cond.args...)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	orderClause, err := validateOrder(order, info.columns)
	if err != nil {
		return nil, err
	}
	if orderClause != "" {
		tx = tx.Order(orderClause)
	} else {
		tx = tx.Order("id")
	}

	slicePtr := reflect.New(reflect.SliceOf(info.typ))
	if err := tx.Find(slicePtr.Interface()).Error; err != nil {
		return nil, fmt.Errorf("erp: search %s: %w", model, err)
	}

	slice := slicePtr.Elem()
	records := make([]Record, 0, slice.Len())
	for i := 0; i < slice.Len(); i++ {
		records = append(records, s.toRecord(ctx, info, slice.Index(i)))
	}
	return records, nil
}

// Read loads one record by id, optionally restricted to a field list.
func (s *Store) Read(ctx context.Context, model string, id uint, fields []string) (Record, error) {
	info, err := s.resolve(model)
	if err != nil {
		return nil, err
	}

	ptr := reflect.New(info.typ)
	err = s.db.WithContext(ctx).Table(info.schema.Table).Where("id = ?", id).Take(ptr.Interface()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError(model, id)
		}
		return nil, fmt.Errorf("erp: read %s: %w", model, err)
	}

	record := s.toRecord(ctx, info, ptr.Elem())
	if len(fields) == 0 {
		return record, nil
	}

	filtered := make(Record, len(fields))
	for _, field := range fields {
		if !info.columns[field] {
			return nil, ValidationError("unknown field %q", field)
		}
		filtered[field] = record[field]
	}
	return filtered, nil
}

// Create inserts a record from a column-keyed value map and returns its id.
// Provided columns are named in the INSERT explicitly so a zero value (e.g.
// active=false) is written instead of losing to the column default.
func (s *Store) Create(ctx context.Context, model string, values Record) (uint, error) {
	info, err := s.resolve(model)
	if err != nil {
		return 0, err
	}

	ptr := reflect.New(info.typ)
	selected := make([]string, 0, len(values)+2)
	seen := make(map[string]bool, len(values)+2)
	for column, value := range values {
		field := info.schema.LookUpField(column)
		if field == nil || field.DBName == "" {
			return 0, ValidationError("unknown field %q", column)
		}
		if value == nil {
			continue
		}
		if err := field.Set(ctx, ptr.Elem(), value); err != nil {
			return 0, ValidationError("invalid value for %s: %v", column, err)
		}
		if !seen[field.DBName] {
			selected = append(selected, field.DBName)
			seen[field.DBName] = true
		}
	}
	// Every other column joins the insert too, except the primary key and
	// defaulted columns left unset, which keep their database defaults.
	for _, field := range info.schema.Fields {
		if field.DBName == "" || seen[field.DBName] || field.PrimaryKey || field.HasDefaultValue {
			continue
		}
		selected = append(selected, field.DBName)
		seen[field.DBName] = true
	}

	tx := s.db.WithContext(ctx)
	if len(selected) > 0 {
		tx = tx.Select(selected)
	}
	if err := tx.Create(ptr.Interface()).Error; err != nil {
		return 0, fmt.Errorf("%w: create %s: %v", ErrValidation, model, err)
	}

	primary := info.schema.PrioritizedPrimaryField
	idValue, _ := primary.ValueOf(ctx, ptr.Elem())
	return toUint(idValue), nil
}

// Write updates the given columns on one record.
func (s *Store) Write(ctx context.Context, model string, id uint, values Record) error {
	info, err := s.resolve(model)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	updates := make(map[string]any, len(values))
	for column, value := range values {
		if !info.columns[column] {
			return ValidationError("unknown field %q", column)
		}
		updates[column] = value
	}

	var count int64
	if err := s.db.WithContext(ctx).Table(info.schema.Table).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("erp: write %s: %w", model, err)
	}
	if count == 0 {
		return NotFoundError(model, id)
	}

	ptr := reflect.New(info.typ)
	if err := s.db.WithContext(ctx).Model(ptr.Interface()).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrValidation, model, err)
	}
	return nil
}

// Archive clears the active flag. Models without one reject the call.
func (s *Store) Archive(ctx context.Context, model string, id uint) error {
	info, err := s.resolve(model)
	if err != nil {
		return err
	}
	if !info.columns["active"] {
		return ValidationError("model %q cannot be archived", model)
	}
	return s.Write(ctx, model, id, Record{"active": false})
}

// Count returns the number of records matching the domain.
func (s *Store) Count(ctx context.Context, model string, domain Domain) (int64, error) {
	info, err := s.resolve(model)
	if err != nil {
		return 0, err
	}

	cond, err := compileDomain(domain, info.columns)
	if err != nil {
		return 0, err
	}

	tx := s.db.WithContext(ctx).Table(info.schema.Table)
	if cond.sql != "" {
		tx = tx.Where(cond.sql, cond.args...)
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("erp: count %s: %w", model, err)
	}
	return count, nil
}

func (s *Store) toRecord(ctx context.Context, info *modelInfo, value reflect.Value) Record {
	record := make(Record, len(info.schema.Fields))
	for _, field := range info.schema.Fields {
		if field.DBName == "" {
			continue
		}
		v, isZero := field.ValueOf(ctx, value)
		if field.FieldType.Kind() == reflect.Ptr {
			if isZero || v == nil {
				record[field.DBName] = nil
				continue
			}
			rv := reflect.ValueOf(v)
			if rv.Kind() == reflect.Ptr {
				if rv.IsNil() {
					record[field.DBName] = nil
					continue
				}
				v = rv.Elem().Interface()
			}
		}
		record[field.DBName] = v
	}
	return record
}

func validateOrder(order string, columns map[string]bool) (string, error) {
	trimmed := strings.TrimSpace(order)
	if trimmed == "" {
		return "", nil
	}

	parts := strings.Fields(trimmed)
	if !columns[parts[0]] {
		return "", ValidationError("unknown order field %q", parts[0])
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	direction := strings.ToUpper(parts[1])
	if len(parts) > 2 || (direction != "ASC" && direction != "DESC") {
		return "", ValidationError("invalid order %q", order)
	}
	return parts[0] + " " + direction, nil
}

func toUint(value any) uint {
	switch v := value.(type) {
	case uint:
		return v
	case uint64:
		return uint(v)
	case int64:
		return uint(v)
	case int:
		return uint(v)
	case float64:
		return uint(v)
	default:
		return 0
	}
}
