package binding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/go-sql-driver/mysql"
	"github.com/hhkbp2/oltpbench"
)

const (
	PropertyMysqlHost            = "mysql.host"
	PropertyMysqlHostDefault     = "127.0.0.1"
	PropertyMysqlPort            = "mysql.port"
	PropertyMysqlPortDefault     = "3306"
	PropertyMysqlDatabase        = "mysql.db"
	PropertyMysqlDatabaseDefault = "VinUniCircularMarket"
	PropertyMysqlUser            = "mysql.user"
	PropertyMysqlUserDefault     = "root"
	PropertyMysqlPassword        = "mysql.password"
	PropertyMysqlPasswordDefault = ""
	// Extra DSN parameters, e.g. "charset=utf8mb4&readTimeout=5s".
	PropertyMysqlOptions        = "mysql.options"
	PropertyMysqlOptionsDefault = ""
	// Dial timeout in seconds, 0 for the driver default.
	PropertyMysqlTimeout        = "mysql.timeout"
	PropertyMysqlTimeoutDefault = "0"
)

const (
	dialectMysql = "mysql"

	// Error number and SQLSTATE of SIGNAL SQLSTATE '45000', which the order
	// procedures raise to refuse a transition.
	errSignalException = 1644
	sqlStateUserSignal = "45000"
)

var (
	procedureStatements = map[oltpbench.Procedure]string{
		oltpbench.ProcedureConfirm:  "CALL sp_confirm_order(?)",
		oltpbench.ProcedureCancel:   "CALL sp_cancel_order(?)",
		oltpbench.ProcedureReject:   "CALL sp_reject_order(?)",
		oltpbench.ProcedureComplete: "CALL sp_complete_order(?)",
	}
)

// MysqlConfig holds the connection settings of the MySQL binding.
type MysqlConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Options  string
	Timeout  time.Duration
}

func NewMysqlConfig(props oltpbench.Properties) (*MysqlConfig, error) {
	port, err := props.GetInt64(PropertyMysqlPort, PropertyMysqlPortDefault)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid property %s: %d", PropertyMysqlPort, port)
	}
	timeout, err := props.GetInt64(PropertyMysqlTimeout, PropertyMysqlTimeoutDefault)
	if err != nil {
		return nil, err
	}
	return &MysqlConfig{
		Host:     props.GetDefault(PropertyMysqlHost, PropertyMysqlHostDefault),
		Port:     int(port),
		Database: props.GetDefault(PropertyMysqlDatabase, PropertyMysqlDatabaseDefault),
		User:     props.GetDefault(PropertyMysqlUser, PropertyMysqlUserDefault),
		Password: props.GetDefault(PropertyMysqlPassword, PropertyMysqlPasswordDefault),
		Options:  props.GetDefault(PropertyMysqlOptions, PropertyMysqlOptionsDefault),
		Timeout:  oltpbench.SecondToDuration(timeout),
	}, nil
}

// DriverConfig returns the driver configuration. Parameters are always
// interpolated on the client, so every operation is a single round trip.
func (self *MysqlConfig) DriverConfig() (*mysql.Config, error) {
	c := mysql.NewConfig()
	c.User = self.User
	c.Passwd = self.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(self.Host, strconv.Itoa(self.Port))
	c.DBName = self.Database
	if len(self.Options) > 0 {
		dsn := c.FormatDSN()
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		parsed, err := mysql.ParseDSN(dsn + sep + strings.TrimPrefix(self.Options, "?"))
		if err != nil {
			return nil, fmt.Errorf("invalid property %s: %w", PropertyMysqlOptions, err)
		}
		c = parsed
	}
	c.InterpolateParams = true
	if self.Timeout > 0 {
		c.Timeout = self.Timeout
	}
	return c, nil
}

// MysqlDB runs the marketplace workload against MySQL over a single
// connection.
type MysqlDB struct {
	*oltpbench.DBBase
	config  *MysqlConfig
	dialect goqu.DialectWrapper
	db      *sql.DB
}

func NewMysqlDB() *MysqlDB {
	return &MysqlDB{
		DBBase:  oltpbench.NewDBBase(),
		dialect: goqu.Dialect(dialectMysql),
	}
}

// NewMysqlDBFromConn wraps an already opened database. Init does not open
// another connection then.
func NewMysqlDBFromConn(db *sql.DB) *MysqlDB {
	object := NewMysqlDB()
	object.db = db
	return object
}

func (self *MysqlDB) Init() error {
	if self.db != nil {
		return nil
	}
	props := self.GetProperties()
	if props == nil {
		props = oltpbench.NewProperties()
	}
	config, err := NewMysqlConfig(props)
	if err != nil {
		return err
	}
	driverConfig, err := config.DriverConfig()
	if err != nil {
		return err
	}
	connector, err := mysql.NewConnector(driverConfig)
	if err != nil {
		return err
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	ctx := context.Background()
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("connect to mysql at %s: %w", driverConfig.Addr, err)
	}
	oltpbench.Infof("connected to mysql at %s/%s", driverConfig.Addr, driverConfig.DBName)
	self.config = config
	self.db = db
	return nil
}

func (self *MysqlDB) Cleanup() error {
	if self.db != nil {
		err := self.db.Close()
		self.db = nil
		return err
	}
	return nil
}

func (self *MysqlDB) ReferenceIDs(ctx context.Context, table, column string) ([]int64, error) {
	query, _, err := self.dialect.From(table).
		Select(column).
		Order(goqu.C(column).Asc()).
		ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := self.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (self *MysqlDB) Orders(ctx context.Context) ([]oltpbench.Order, error) {
	query, _, err := self.dialect.From("Order").
		Select("order_id", "status").
		Order(goqu.C("order_id").Asc()).
		ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := self.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := make([]oltpbench.Order, 0)
	for rows.Next() {
		var id int64
		var status sql.NullString
		if err = rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		orders = append(orders, oltpbench.Order{ID: id, Status: status.String})
	}
	return orders, rows.Err()
}

// newestQuery builds a query for the newest rows of table matching
// conditions. The table is aliased by its lower cased initial.
func (self *MysqlDB) newestQuery(table string, columns []interface{}, limit int64, conditions ...exp.Expression) (string, []interface{}, error) {
	alias := strings.ToLower(table[:1])
	return self.dialect.From(goqu.T(table).As(alias)).
		Select(columns...).
		Where(conditions...).
		Order(goqu.I(alias + ".created_at").Desc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
}

// drain runs query and reads every row of the result.
func (self *MysqlDB) drain(ctx context.Context, query string, args []interface{}) (int, error) {
	rows, err := self.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	values := make([]sql.RawBytes, len(columns))
	dest := make([]interface{}, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	n := 0
	for rows.Next() {
		if err = rows.Scan(dest...); err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

func (self *MysqlDB) Browse(ctx context.Context, categoryID int64, limit int64) (int, error) {
	query, args, err := self.newestQuery("Listing",
		[]interface{}{"l.listing_id", "l.title", "l.list_price", "l.created_at"}, limit,
		goqu.I("l.status").Eq("available"), goqu.I("l.category_id").Eq(categoryID))
	if err != nil {
		return 0, err
	}
	n, err := self.drain(ctx, query, args)
	if err != nil {
		return n, fmt.Errorf("browse category %d: %w", categoryID, err)
	}
	return n, nil
}

func (self *MysqlDB) SellerListings(ctx context.Context, sellerID int64, limit int64) (int, error) {
	query, args, err := self.newestQuery("Listing",
		[]interface{}{"l.listing_id", "l.title", "l.status", "l.created_at"}, limit,
		goqu.I("l.seller_id").Eq(sellerID))
	if err != nil {
		return 0, err
	}
	n, err := self.drain(ctx, query, args)
	if err != nil {
		return n, fmt.Errorf("listings of seller %d: %w", sellerID, err)
	}
	return n, nil
}

func (self *MysqlDB) Comments(ctx context.Context, listingID int64, limit int64) (int, error) {
	query, args, err := self.newestQuery("Comment",
		[]interface{}{"c.comment_id", "c.user_id", "c.created_at", "c.parent_id", "c.content"}, limit,
		goqu.I("c.listing_id").Eq(listingID))
	if err != nil {
		return 0, err
	}
	n, err := self.drain(ctx, query, args)
	if err != nil {
		return n, fmt.Errorf("comments of listing %d: %w", listingID, err)
	}
	return n, nil
}

func (self *MysqlDB) CallProcedure(ctx context.Context, proc oltpbench.Procedure, orderID int64) error {
	statement, ok := procedureStatements[proc]
	if !ok {
		return fmt.Errorf("%w: %d", oltpbench.ErrUnknownProcedure, proc)
	}
	if _, err := self.db.ExecContext(ctx, statement, orderID); err != nil {
		return fmt.Errorf("%s(%d): %w", proc, orderID, classifyError(err))
	}
	return nil
}

// classifyError turns a refused transition into ErrConflict and keeps any
// other error as is.
func classifyError(err error) error {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return err
	}
	if mysqlErr.Number == errSignalException || string(mysqlErr.SQLState[:]) == sqlStateUserSignal {
		return fmt.Errorf("%w: %s", oltpbench.ErrConflict, mysqlErr.Message)
	}
	return err
}
