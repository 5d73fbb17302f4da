package builder

import (
	"fmt"
	"strings"
)

// GenerateKernelSignature generates the parameter list for a kernel. K is
// always first, then each array as a global pointer and its offsets in
// parameter order, then scalars. This is the order RunKernel passes
// arguments in.
func GenerateKernelSignature(params []ParamSpec) string {
	args := []string{"const int_t* K"}
	for _, p := range params {
		if p.Direction == DirectionScalar {
			continue
		}
		constQualifier := ""
		if p.IsConst() {
			constQualifier = "const "
		}
		args = append(args,
			fmt.Sprintf("%sreal_t* %s_global", constQualifier, p.Name),
			fmt.Sprintf("const int_t* %s_offsets", p.Name))
	}
	for _, p := range params {
		if p.Direction == DirectionScalar {
			args = append(args, fmt.Sprintf("const %s %s", scalarCType(p.DataType), p.Name))
		}
	}
	return strings.Join(args, ",\n\t")
}

func scalarCType(d DataType) string {
	switch d {
	case INT32, INT64:
		return "int_t"
	default:
		return "real_t"
	}
}

// GenerateKernelDeclaration generates a complete kernel function declaration
func GenerateKernelDeclaration(kernelName string, params []ParamSpec) string {
	return fmt.Sprintf("@kernel void %s(\n\t%s\n)", kernelName, GenerateKernelSignature(params))
}

// GenerateCellKernel wraps a per-cell body in the partition loops. Inside the
// body each array is available by name as a pointer to the partition's data
// and the current cell index is cell.
func GenerateCellKernel(kernelName string, params []ParamSpec, body string) string {
	var sb strings.Builder

	sb.WriteString(GenerateKernelDeclaration(kernelName, params))
	sb.WriteString(" {\n")
	sb.WriteString("\tfor (int part = 0; part < NPART; ++part; @outer) {\n")
	for _, p := range params {
		if p.Direction == DirectionScalar {
			continue
		}
		constQualifier := ""
		if p.IsConst() {
			constQualifier = "const "
		}
		sb.WriteString(fmt.Sprintf("\t\t%sreal_t* %s = %s_PART(part);\n",
			constQualifier, p.Name, p.Name))
	}
	sb.WriteString("\n")
	sb.WriteString("\t\tfor (int cell = 0; cell < KpartMax; ++cell; @inner) {\n")
	sb.WriteString("\t\t\tif (cell < K[part]) {\n")
	for _, line := range strings.Split(body, "\n") {
		if line != "" {
			sb.WriteString("\t\t\t\t")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\t\t\t}\n")
	sb.WriteString("\t\t}\n")
	sb.WriteString("\t}\n")
	sb.WriteString("}\n")
	return sb.String()
}
