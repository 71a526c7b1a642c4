// Package web provides HTTP handlers and REST API endpoints for flow editing.
package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dukex/flowbuilder/pkg/flow"
	"github.com/dukex/flowbuilder/pkg/models"
	"github.com/dukex/flowbuilder/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	flowService *services.Flow
	validator   *validator.Validate
}

func NewAPIHandlers(flowService *services.Flow, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		flowService: flowService,
		validator:   validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.flowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowbuilder API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Flowbuilder API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	nodeTypes := models.NodeTypes()
	response := make([]NodeTypeResponse, 0, len(nodeTypes))

	for _, nodeType := range nodeTypes {
		response = append(response, NodeTypeResponse{
			Type:        nodeType,
			Label:       nodeType.Label(),
			Description: nodeType.Description(),
			Schema:      nodeType.Schema(),
		})
	}

	return c.JSON(response)
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	flows, err := h.flowService.ListFlows(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"flows":       flows,
		"total_count": len(flows),
	})
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	found, err := h.flowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.flowService.Create(c.Context(), &services.CreateFlowRequest{
		Name:  req.Name,
		Owner: req.Owner,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) RenameFlow(c fiber.Ctx) error {
	var req RenameFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.flowService.Rename(c.Context(), c.Params("id"), req.Name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	err := h.flowService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateNode(c fiber.Ctx) error {
	var req CreateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	nodeType, err := models.ParseNodeType(req.Type)
	if err != nil {
		return badRequest(c, err.Error())
	}

	data, err := decodePayload(nodeType, req.Data)
	if err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.flowService.CreateNode(c.Context(), c.Params("id"), &services.CreateNodeRequest{
		Type:     nodeType,
		Position: req.Position,
		Data:     data,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *APIHandlers) UpdateNode(c fiber.Ctx) error {
	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	flowID := c.Params("id")
	nodeID := c.Params("nodeId")

	stored, err := h.flowService.FetchByID(c.Context(), flowID)
	if err != nil {
		return handleServiceError(c, err)
	}

	// The payload schema depends on the node's type, so look it up first.
	var nodeType models.NodeType

	for _, node := range stored.Nodes {
		if node.ID == nodeID {
			nodeType = node.Type
		}
	}

	if nodeType == "" {
		return handleServiceError(c, fmt.Errorf("%w: %s", flow.ErrNodeNotFound, nodeID))
	}

	data, err := decodePayload(nodeType, req.Data)
	if err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.flowService.UpdateNodePayload(c.Context(), flowID, nodeID, data)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	updated, err := h.flowService.DeleteNode(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) CreateEdge(c fiber.Ctx) error {
	var req ConnectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	edge, err := h.flowService.Connect(c.Context(), c.Params("id"), req.Connection())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(edge)
}

func (h *APIHandlers) DeleteEdge(c fiber.Ctx) error {
	updated, err := h.flowService.DeleteEdge(c.Context(), c.Params("id"), c.Params("edgeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) ValidateFlow(c fiber.Ctx) error {
	report, err := h.flowService.Validate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) SaveFlow(c fiber.Ctx) error {
	result, err := h.flowService.Save(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	if !result.Saved {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(NewSaveRejectedResponse(result))
	}

	return c.JSON(result.Flow)
}

// RegisterRoutes mounts every flow editor route on router.
func (h *APIHandlers) RegisterRoutes(router fiber.Router) {
	router.Get("/node-types", h.GetNodeTypes)

	f := router.Group("/flows")
	f.Get("/", h.GetFlows)
	f.Post("/", h.CreateFlow)
	f.Get("/:id", h.GetFlow)
	f.Patch("/:id", h.RenameFlow)
	f.Delete("/:id", h.DeleteFlow)
	f.Post("/:id/nodes", h.CreateNode)
	f.Patch("/:id/nodes/:nodeId", h.UpdateNode)
	f.Delete("/:id/nodes/:nodeId", h.DeleteNode)
	f.Post("/:id/edges", h.CreateEdge)
	f.Delete("/:id/edges/:edgeId", h.DeleteEdge)
	f.Post("/:id/validate", h.ValidateFlow)
	f.Post("/:id/save", h.SaveFlow)
}
