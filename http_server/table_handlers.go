package http_server

import (
	"errors"
	"net/http"

	"github.com/Siyun/carbondata/metastore"
	"github.com/Siyun/carbondata/schema"
	"github.com/Siyun/carbondata/utils"
)

type (
	CreateTableReqBody struct {
		Name          string `validate:"required"`
		Dimensions    []schema.ColumnSchema
		Measures      []schema.ColumnSchema
		PartitionInfo schema.PartitionInfo `validate:"required"`
	}
)

func (s *HTTPServer) CreateTableHandler(c *CustomContext) error {
	var reqBody CreateTableReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	ts := schema.TableSchema{
		Name:          reqBody.Name,
		Dimensions:    reqBody.Dimensions,
		Measures:      reqBody.Measures,
		PartitionInfo: reqBody.PartitionInfo,
	}
	for i := range ts.Dimensions {
		ts.Dimensions[i].Ordinal = i
	}
	for i := range ts.Measures {
		ts.Measures[i].Ordinal = i
	}

	err := s.MetaStore.CreateTableSchema(c.Request().Context(), ts)
	if errors.Is(err, metastore.ErrTableExists) {
		return c.String(http.StatusConflict, "table already exists")
	}
	if err != nil {
		return c.InternalError(err, "error creating table schema")
	}

	return c.NoContent(http.StatusCreated)
}

func (s *HTTPServer) GetTableSchemaHandler(c *CustomContext) error {
	ts, err := s.MetaStore.GetTableSchema(c.Request().Context(), c.Param("table"))
	if errors.Is(err, metastore.ErrTableNotFound) {
		return c.String(http.StatusNotFound, "table not found")
	}
	if err != nil {
		return c.InternalError(err, "error getting table schema")
	}

	return c.JSON(http.StatusOK, ts)
}

func (s *HTTPServer) ListSegmentsHandler(c *CustomContext) error {
	segments, err := s.MetaStore.ListSegments(c.Request().Context(), c.Param("table"))
	if err != nil {
		return c.InternalError(err, "error listing segments")
	}

	return c.JSON(http.StatusOK, utils.ArrayOrEmpty(segments))
}
