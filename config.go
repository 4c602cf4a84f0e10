package oltpbench

const (
	// DBWrapper
	// Whether to record the latency of failed operations too, in a bucket
	// named after the operation and the status, e.g. "sp-CONFLICT".
	PropertyReportLatencyForEachError        = "reportlatencyforeacherror"
	PropertyReportLatencyForEachErrorDefault = "false"

	// BasicDB
	ConfigBasicDBVerbose           = "basicdb.verbose"
	ConfigBasicDBVerboseDefault    = "false"
	ConfigSimulateDelay            = "basicdb.simulatedelay"
	ConfigSimulateDelayDefault     = "0"
	ConfigRandomizeDelay           = "basicdb.randomizedelay"
	ConfigRandomizeDelayDefault    = "true"
	ConfigBasicDBCategories        = "basicdb.categories"
	ConfigBasicDBCategoriesDefault = "10"
	ConfigBasicDBUsers             = "basicdb.users"
	ConfigBasicDBUsersDefault      = "100"
	ConfigBasicDBListings          = "basicdb.listings"
	ConfigBasicDBListingsDefault   = "1000"
	ConfigBasicDBOrders            = "basicdb.orders"
	ConfigBasicDBOrdersDefault     = "200"
	// Probability that a simulated stored procedure call reports a conflict.
	ConfigBasicDBConflictRate        = "basicdb.conflictrate"
	ConfigBasicDBConflictRateDefault = "0"

	// Client
	// The number of workload iterations to perform.
	PropertyOperationCount        = "operationcount"
	PropertyOperationCountDefault = "500"
	// The workload class to be loaded.
	PropertyWorkload        = "workload"
	PropertyWorkloadDefault = "MarketplaceWorkload"
	// The database class to be used.
	PropertyDB        = "db"
	PropertyDBDefault = "basic"
	// The exporter class to be used. No export happens if unset.
	PropertyExporter = "exporter"
	// If set to the path of a file, this file will be written instead of
	// stdout. strftime patterns such as %Y%m%d-%H%M%S are expanded.
	PropertyExportFile = "exportfile"
	// Target number of operations per second. 0 means unthrottled.
	PropertyTarget        = "target"
	PropertyTargetDefault = "0"
	// The maximum amount of time (in seconds) for which the benchmark will be run.
	PropertyMaxExecutionTime        = "maxexecutiontime"
	PropertyMaxExecutionTimeDefault = "0"
	// The seed of the random source. The clock is used if unset.
	PropertySeed = "seed"
	// Listen address of the prometheus metrics endpoint, e.g. ":9100".
	PropertyMetricsAddr = "metrics.addr"

	// workload
	// The name of the property for the proportion of operations that browse
	// available listings of a category.
	PropertyBrowseProportion        = "browseproportion"
	PropertyBrowseProportionDefault = "0.70"
	// The name of the property for the proportion of operations that list
	// the listings of one seller.
	PropertySellerProportion        = "sellerproportion"
	PropertySellerProportionDefault = "0.10"
	// The name of the property for the proportion of operations that list
	// the comments of one listing.
	PropertyCommentsProportion        = "commentsproportion"
	PropertyCommentsProportionDefault = "0.10"
	// The name of the property for the proportion of operations that call
	// an order state transition procedure.
	PropertyProcedureProportion        = "procedureproportion"
	PropertyProcedureProportionDefault = "0.10"
	// The name of the property for the distribution of requests across the
	// reference identifiers. Options are "uniform", "zipfian", "hotspot"
	// and "exponential".
	PropertyRequestDistribution        = "requestdistribution"
	PropertyRequestDistributionDefault = "uniform"
	// Percentage data items that constitute the hot set.
	HotspotDataFraction = "hotspotdatafraction"
	// The default value of `HotspotDataFraction`
	HotspotDataFractionDefault = "0.2"
	// Percentage operations that access the hot set.
	HotspotOpnFraction = "hotspotopnfraction"
	// The default value of `HotspotOpnFraction`
	HotspotOpnFractionDefault = "0.8"
	// Row limits of the three read queries.
	PropertyBrowseLimit          = "browse.limit"
	PropertyBrowseLimitDefault   = "20"
	PropertySellerLimit          = "seller.limit"
	PropertySellerLimitDefault   = "20"
	PropertyCommentsLimit        = "comments.limit"
	PropertyCommentsLimitDefault = "30"

	// measurement
	PropertyMeasurementType        = "measurementtype"
	PropertyMeasurementTypeDefault = "raw"

	// The name of the property for deciding what percentile values to output.
	PropertyPercentiles = "hdrhistogram.percentiles"
	// The default value of `PropertyPercentiles`
	PropertyPercentilesDefault = "95,99"
	// The highest trackable latency of the hdrhistogram, in microseconds.
	PropertyHdrHistogramMax        = "hdrhistogram.max"
	PropertyHdrHistogramMaxDefault = "3600000000"
	// The number of significant value digits of the hdrhistogram.
	PropertyHdrHistogramSig        = "hdrhistogram.sig"
	PropertyHdrHistogramSigDefault = "3"

	// generator
	// What percentage of the readings should be within the most recent
	// exponential.frac portion of the dataset?
	PropertyExponentialPercentile        = "exponential.percentile"
	PropertyExponentialPercentileDefault = "95"
	// What fraction of the dataset should be accessed exponential.percentile
	// of the time?
	PropertyExponentialFraction        = "exponential.frac"
	PropertyExponentialFractionDefault = "0.8571428571" // 1/7
)
