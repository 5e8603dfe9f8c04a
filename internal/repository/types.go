package repository

// OperatorListFilter 查询操作员列表的过滤条件
type OperatorListFilter struct {
	Page     int
	PageSize int
	Keyword  string
}
