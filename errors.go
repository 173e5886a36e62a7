package spmapper

import (
	"errors"
	"fmt"
	"strconv"
)

// Sentinel errors for mapping and list operations.
var (
	// Configuration errors
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrMissingListInfo = errors.New("missing list annotation")
	ErrInvalidListInfo = errors.New("invalid list annotation")

	// Schema errors
	ErrFieldNotFound    = errors.New("field not found in item")
	ErrUnsupportedShape = errors.New("unsupported field value shape")

	// Conversion errors
	ErrConversion = errors.New("field value conversion failed")

	// Host errors
	ErrListNotFound   = errors.New("list not found")
	ErrRecordNotFound = errors.New("record not found")
	ErrListExists     = errors.New("list already exists")
	ErrUnknownField   = errors.New("field does not exist")

	// Generic errors
	ErrNotImplemented = errors.New("not implemented")
	ErrNotSupported   = errors.New("operation not supported")
)

// ConfigError reports a missing or unusable list or field annotation.
type ConfigError struct {
	Type    string
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Field != "" && e.Type != "":
		return fmt.Sprintf("config error for field %s of type %s: %s", e.Field, e.Type, e.Message)
	case e.Field != "":
		return fmt.Sprintf("config error for field %s: %s", e.Field, e.Message)
	case e.Type != "":
		return fmt.Sprintf("config error for type %s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidConfig
	}
	return e.Err
}

// SchemaError reports an item whose field bag does not match the entity mapping.
type SchemaError struct {
	Type     string
	Field    string
	Property string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("the field '%s' required by property '%s' of type %s: %v",
		e.Field, e.Property, e.Type, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// MappingError reports a failure to resolve or coerce a field value into
// an entity property.
type MappingError struct {
	Type     string
	Field    string
	Property string
	Err      error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("failed to map field '%s' to property '%s' in type %s: %v",
		e.Field, e.Property, e.Type, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// NotImplementedError reports an operation that is declared but unsupported.
type NotImplementedError struct {
	Operation string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, ErrNotImplemented)
}

func (e *NotImplementedError) Unwrap() error {
	return ErrNotImplemented
}

// RecordNotFoundError reports a missing list or list item on a host.
// An empty ID refers to the list itself.
type RecordNotFoundError struct {
	List string
	ID   string
}

func (e *RecordNotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("list %s not found", e.List)
	}
	return fmt.Sprintf("item %s not found in list %s", e.ID, e.List)
}

func (e *RecordNotFoundError) Unwrap() error {
	if e.ID == "" {
		return ErrListNotFound
	}
	return ErrRecordNotFound
}

// ConnectionError represents connection-related errors.
type ConnectionError struct {
	Operation string
	Driver    string
	Host      string
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s with %s driver at %s: %v",
		e.Operation, e.Driver, e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// DriverError represents driver-related errors.
type DriverError struct {
	Driver    string
	Operation string
	Err       error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver error with %s during %s: %v",
		e.Driver, e.Operation, e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// TransactionError represents transaction-related errors.
type TransactionError struct {
	Operation string
	Err       error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction error during %s: %v", e.Operation, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// QueryError represents statement failures on a SQL-backed host.
type QueryError struct {
	Operation string
	Table     string
	Query     string
	Args      []any
	Err       error
}

func (e *QueryError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("query error during %s on table %s: %v",
			e.Operation, e.Table, e.Err)
	}
	return fmt.Sprintf("query error during %s: %v", e.Operation, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Constructor functions for custom errors

// NewConfigError creates a new config error for a type.
func NewConfigError(typeName, message string, err error) *ConfigError {
	return &ConfigError{
		Type:    typeName,
		Message: message,
		Err:     err,
	}
}

// NewConfigErrorForField creates a new config error for a specific struct field.
func NewConfigErrorForField(typeName, field, message string) *ConfigError {
	return &ConfigError{
		Type:    typeName,
		Field:   field,
		Message: message,
	}
}

// NewSchemaError creates a new schema error.
func NewSchemaError(err error, typeName, field, property string) *SchemaError {
	return &SchemaError{
		Type:     typeName,
		Field:    field,
		Property: property,
		Err:      err,
	}
}

// NewNotImplementedError creates a new not implemented error.
func NewNotImplementedError(operation string) *NotImplementedError {
	return &NotImplementedError{Operation: operation}
}

// NewListNotFoundError creates a record not found error for a list.
func NewListNotFoundError(list string) *RecordNotFoundError {
	return &RecordNotFoundError{List: list}
}

// NewRecordNotFoundError creates a record not found error for a list item.
func NewRecordNotFoundError(list string, id int) *RecordNotFoundError {
	return &RecordNotFoundError{
		List: list,
		ID:   strconv.Itoa(id),
	}
}

// NewConnectionError creates a new connection error.
func NewConnectionError(err error, operation, driver, host string) *ConnectionError {
	return &ConnectionError{
		Operation: operation,
		Driver:    driver,
		Host:      host,
		Err:       err,
	}
}

// NewDriverError creates a new driver error.
func NewDriverError(err error, driver, operation string) *DriverError {
	return &DriverError{
		Driver:    driver,
		Operation: operation,
		Err:       err,
	}
}

// NewTransactionError creates a new transaction error.
func NewTransactionError(err error, operation string) *TransactionError {
	return &TransactionError{
		Operation: operation,
		Err:       err,
	}
}

// NewQueryError creates a new query error.
func NewQueryError(err error, operation, table, query string, args []any) *QueryError {
	return &QueryError{
		Operation: operation,
		Table:     table,
		Query:     query,
		Args:      args,
		Err:       err,
	}
}

// Wrapper functions for adding context to errors

// WrapMappingError wraps an error as a mapping error.
func WrapMappingError(err error, typeName, field, property string) error {
	if err == nil {
		return nil
	}
	return &MappingError{
		Type:     typeName,
		Field:    field,
		Property: property,
		Err:      err,
	}
}

// WrapConnectionError wraps an error as a connection error.
func WrapConnectionError(err error, operation, driver, host string) error {
	if err == nil {
		return nil
	}
	return NewConnectionError(err, operation, driver, host)
}

// WrapDriverError wraps an error as a driver error.
func WrapDriverError(err error, driver, operation string) error {
	if err == nil {
		return nil
	}
	return NewDriverError(err, driver, operation)
}

// WrapTransactionError wraps an error as a transaction error.
func WrapTransactionError(err error, operation string) error {
	if err == nil {
		return nil
	}
	return NewTransactionError(err, operation)
}

// WrapQueryError wraps an error as a query error.
func WrapQueryError(err error, operation, table, query string, args []any) error {
	if err == nil {
		return nil
	}
	return NewQueryError(err, operation, table, query, args)
}

// Error checking functions

// IsConfigError checks if an error is a config error.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsSchemaError checks if an error is a schema error.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}

// IsMappingError checks if an error is a mapping error.
func IsMappingError(err error) bool {
	var mappingErr *MappingError
	return errors.As(err, &mappingErr)
}

// IsNotImplemented checks if an error reports an unsupported operation.
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}

// IsRecordNotFoundError checks if an error is a record not found error.
func IsRecordNotFoundError(err error) bool {
	var notFoundErr *RecordNotFoundError
	return errors.As(err, &notFoundErr)
}

// IsConnectionError checks if an error is a connection error.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// IsDriverError checks if an error is a driver error.
func IsDriverError(err error) bool {
	var driverErr *DriverError
	return errors.As(err, &driverErr)
}

// IsTransactionError checks if an error is a transaction error.
func IsTransactionError(err error) bool {
	var txErr *TransactionError
	return errors.As(err, &txErr)
}

// IsQueryError checks if an error is a query error.
func IsQueryError(err error) bool {
	var queryErr *QueryError
	return errors.As(err, &queryErr)
}
