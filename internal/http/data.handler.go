package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/frier-sam/dynamic-saas/internal/appcontext"
	"github.com/gin-gonic/gin"
)

// QueryTableData reads rows from a module table. The where and order_by query
// parameters are raw SQL fragments passed through to the store; this surface
// is for trusted internal frontends only (see tablestore.Store). Fragments
// containing a statement separator are rejected outright, everything else is
// the caller's responsibility.
func QueryTableData(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		module, ok := requireModule(ctx, c)
		if !ok {
			return
		}
		tableName := c.Param("tableName")

		where := c.Query("where")
		orderBy := c.Query("order_by")
		if strings.ContainsRune(where, ';') || strings.ContainsRune(orderBy, ';') {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Query fragments must not contain statement separators"})
			return
		}

		var params []any
		if raw := c.Query("params"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &params); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "params must be a JSON array"})
				return
			}
		}

		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			limit = parsed
		}

		results := ctx.CRUD.QueryData(module, tableName, nil, where, params, limit, orderBy)
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

func InsertTableData(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		module, ok := requireModule(ctx, c)
		if !ok {
			return
		}
		tableName := c.Param("tableName")

		var data map[string]any
		if err := c.ShouldBindJSON(&data); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be a JSON object"})
			return
		}
		if len(data) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Data is required"})
			return
		}

		rowID := ctx.CRUD.InsertData(module, tableName, data)
		if rowID < 0 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error inserting data"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"row_id":  rowID,
			"message": "Data inserted successfully",
		})
	}
}

func UpdateTableRecord(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		module, ok := requireModule(ctx, c)
		if !ok {
			return
		}
		tableName := c.Param("tableName")

		recordID, err := strconv.ParseInt(c.Param("recordID"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid record ID"})
			return
		}

		var data map[string]any
		if err := c.ShouldBindJSON(&data); err != nil || len(data) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Data is required"})
			return
		}

		affected := ctx.CRUD.UpdateData(module, tableName, data, "id = ?", []any{recordID})
		if affected <= 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Error updating record or record not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"rows_affected": affected,
			"message":       "Record updated successfully",
		})
	}
}

func DeleteTableRecord(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		module, ok := requireModule(ctx, c)
		if !ok {
			return
		}
		tableName := c.Param("tableName")

		recordID, err := strconv.ParseInt(c.Param("recordID"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid record ID"})
			return
		}

		affected := ctx.CRUD.DeleteData(module, tableName, "id = ?", []any{recordID})
		if affected <= 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Error deleting record or record not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"rows_affected": affected,
			"message":       "Record deleted successfully",
		})
	}
}
